package suggestion

import "strings"

const fence = "```"

// ExtractListBlocks 応答テキストからJSON配列らしいコードブロックを取り出す
//
// ``` で区切られた各部分を前後の空白を除いて調べ、先頭の "json" 言語タグを
// 取り除いたうえで "[" で始まり "]" で終わるものだけを返す。
func ExtractListBlocks(content string) []string {
	var blocks []string
	for _, part := range strings.Split(content, fence) {
		trimmed := strings.TrimSpace(part)
		if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
			trimmed = strings.TrimSpace(trimmed[4:])
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}
