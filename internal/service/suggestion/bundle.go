package suggestion

// Bundle 是一次生成得到的全部元数据建议。所有字段始终存在（可为空串/空切片），
// 消费方无需做存在性判断。返回后不再修改。
type Bundle struct {
	MetaTitle            string   `json:"meta_title"`
	MetaDescription      string   `json:"meta_description"`
	OpenGraphTitle       string   `json:"open_graph_title"`
	OpenGraphDescription string   `json:"open_graph_description"`
	TwitterTitle         string   `json:"twitter_title"`
	TwitterDescription   string   `json:"twitter_description"`
	Keywords             []string `json:"keywords"`
	ModelUsed            string   `json:"model_used"`
}

// mergeBundles 把 overlay 的非空字段覆盖到 base 上，空字段保留 base 的值。
// overlay 没有关键词时沿用 base 的关键词。ModelUsed 由调用方另行标注。
func mergeBundles(base, overlay Bundle) Bundle {
	merged := base
	if overlay.MetaTitle != "" {
		merged.MetaTitle = overlay.MetaTitle
	}
	if overlay.MetaDescription != "" {
		merged.MetaDescription = overlay.MetaDescription
	}
	if overlay.OpenGraphTitle != "" {
		merged.OpenGraphTitle = overlay.OpenGraphTitle
	}
	if overlay.OpenGraphDescription != "" {
		merged.OpenGraphDescription = overlay.OpenGraphDescription
	}
	if overlay.TwitterTitle != "" {
		merged.TwitterTitle = overlay.TwitterTitle
	}
	if overlay.TwitterDescription != "" {
		merged.TwitterDescription = overlay.TwitterDescription
	}
	if len(overlay.Keywords) > 0 {
		merged.Keywords = overlay.Keywords
	}
	return merged
}
