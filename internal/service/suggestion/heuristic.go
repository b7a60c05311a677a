/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-14 11:30:48
 * @FilePath: \seo-assistant\internal\service\suggestion\heuristic.go
 * @LastEditTime: 2025-10-15 10:02:13
 */
package suggestion

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	descriptionLimit = 155
	titleLimit       = 60

	fallbackTitle = "Suggested Title"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	sentenceEndRe = regexp.MustCompile(`[.!?]\s`)
)

// stopwords 是关键词抽取时丢弃的常见英文虚词。
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "have": {}, "will": {}, "about": {}, "into": {},
	"while": {}, "what": {}, "when": {}, "where": {}, "would": {}, "could": {},
	"their": {}, "there": {}, "they": {}, "them": {}, "over": {}, "under": {},
	"above": {}, "below": {}, "between": {}, "after": {}, "before": {},
	"because": {}, "been": {}, "being": {}, "also": {}, "just": {}, "more": {},
	"most": {}, "such": {}, "only": {}, "other": {},
}

// buildHeuristic 基于纯文本分析生成完整的建议包，内容为空时各字段退化为空串。
func buildHeuristic(title, content string) Bundle {
	plain := normalizeContent(content)

	description := generateDescription(plain)
	keywords := extractKeywords(plain)
	titleSuggestion := generateTitle(title, keywords)

	return Bundle{
		MetaTitle:            titleSuggestion,
		MetaDescription:      description,
		OpenGraphTitle:       titleSuggestion,
		OpenGraphDescription: description,
		TwitterTitle:         titleSuggestion,
		TwitterDescription:   description,
		Keywords:             keywords,
	}
}

// normalizeContent 剥离标记、解码实体并把连续空白折叠成单个空格。
func normalizeContent(content string) string {
	content = scriptStyleRe.ReplaceAllString(content, " ")
	content = tagRe.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	content = whitespaceRe.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// generateDescription 取首个句子（以 .!? 加空白为界），没有边界时用整段文本，再截断到 155 字符。
func generateDescription(plain string) string {
	if plain == "" {
		return ""
	}

	description := plain
	if loc := sentenceEndRe.FindStringIndex(plain); loc != nil {
		description = plain[:loc[0]+1]
	}

	return truncate(strings.TrimSpace(description), descriptionLimit)
}

// generateTitle 在首个关键词尚未出现在标题里时以 " | keyword" 形式拼接，再截断到 60 字符。
// 标题与关键词都为空时回退到固定占位标题。
func generateTitle(postTitle string, keywords []string) string {
	title := postTitle
	if len(keywords) > 0 {
		primary := keywords[0]
		if primary != "" && !strings.Contains(strings.ToLower(postTitle), strings.ToLower(primary)) {
			title = postTitle + " | " + primary
		}
	}
	if title == "" {
		title = fallbackTitle
	}
	return truncate(title, titleLimit)
}

// extractKeywords 统计词频返回前 5 个关键词：长度不超过 4 的词与停用词被丢弃，
// 频次相同的按首次出现顺序排序（稳定排序保证）。
func extractKeywords(plain string) []string {
	keywords := make([]string, 0, 5)
	if plain == "" {
		return keywords
	}

	words := strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})

	counts := map[string]int{}
	order := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "'-")
		if utf8.RuneCountInString(word) <= 4 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > 5 {
		order = order[:5]
	}
	return append(keywords, order...)
}

// truncate 把超长字符串截断为 limit-3 字符并追加省略号，截断前会去掉尾部空白。
// 截断点落在多字节字符中间时向前回退，避免产生非法 UTF-8。
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}

	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimRight(value[:cut], " \t\n") + "..."
}
