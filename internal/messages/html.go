package messages

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
)

// escapeRune returns the HTML-safe form of r, matching Escape.
func escapeRune(r rune) string {
	switch r {
	case '&':
		return "&amp;"
	case '<':
		return "&lt;"
	case '>':
		return "&gt;"
	case '"':
		return "&quot;"
	case '\'':
		return "&#39;"
	}
	return string(r)
}

func escapeRaw(s string) string {
	var sb strings.Builder
	for _, r := range s {
		sb.WriteString(escapeRune(r))
	}
	return sb.String()
}

// SplitEscaped escapes raw and breaks the result into chunks of at most limit
// characters, preferring line breaks as cut points. An escaped character is
// never cut in half.
func SplitEscaped(raw string, limit int) []string {
	raw = strings.TrimSpace(raw)
	if limit <= 0 {
		return []string{escapeRaw(raw)}
	}

	var (
		chunks    []string
		cur       []string
		size      int
		lastBreak int
		breakSize int
	)
	for _, r := range raw {
		piece := escapeRune(r)
		n := utf8.RuneCountInString(piece)
		if size+n > limit && len(cur) > 0 {
			cut, cutSize := len(cur), size
			if lastBreak > 0 && breakSize > limit/2 {
				cut, cutSize = lastBreak, breakSize
			}
			chunks = append(chunks, strings.Join(cur[:cut], ""))
			cur = append([]string(nil), cur[cut:]...)
			size -= cutSize
			lastBreak, breakSize = 0, 0
		}
		cur = append(cur, piece)
		size += n
		if r == '\n' {
			lastBreak, breakSize = len(cur), size
		}
	}
	if len(cur) > 0 || len(chunks) == 0 {
		chunks = append(chunks, strings.Join(cur, ""))
	}
	return chunks
}

// Paginate escapes answer and splits it so that every part stays within limit
// after header is prepended to the first part and footer appended to the last.
func Paginate(answer, header, footer string, limit int) []string {
	reserve := utf8.RuneCountInString(header) + utf8.RuneCountInString(footer)
	parts := SplitEscaped(answer, limit-reserve)
	parts[0] = header + parts[0]
	parts[len(parts)-1] += footer
	return parts
}

// EntitiesHTML renders a message text with its formatting entities as
// Telegram HTML. Offsets and lengths are in UTF-16 code units. Entities
// without an HTML form, such as mentions and hashtags, stay plain text.
func EntitiesHTML(text string, entities []models.MessageEntity) string {
	if len(entities) == 0 {
		return escapeRaw(text)
	}

	sorted := make([]models.MessageEntity, 0, len(entities))
	for _, e := range entities {
		if e.Length > 0 && e.Offset >= 0 {
			if _, ok := openTag(e); ok {
				sorted = append(sorted, e)
			}
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Length > sorted[j].Length
	})

	units := utf16.Encode([]rune(text))
	var (
		sb    strings.Builder
		stack []models.MessageEntity
		next  int
	)
	closeUntil := func(pos int) {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.Offset+top.Length > pos {
				return
			}
			sb.WriteString(closeTag(top))
			stack = stack[:len(stack)-1]
		}
	}

	for i := 0; i < len(units); {
		closeUntil(i)
		for next < len(sorted) && sorted[next].Offset <= i {
			e := sorted[next]
			next++
			// Skip entities that would cross their parent's end.
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				if e.Offset+e.Length > parent.Offset+parent.Length {
					continue
				}
			}
			open, _ := openTag(e)
			sb.WriteString(open)
			stack = append(stack, e)
		}

		r, width := rune(units[i]), 1
		if utf16.IsSurrogate(r) && i+1 < len(units) {
			r, width = utf16.DecodeRune(r, rune(units[i+1])), 2
		}
		sb.WriteString(escapeRune(r))
		i += width
	}
	for len(stack) > 0 {
		sb.WriteString(closeTag(stack[len(stack)-1]))
		stack = stack[:len(stack)-1]
	}
	return sb.String()
}

func openTag(e models.MessageEntity) (string, bool) {
	switch e.Type {
	case models.MessageEntityTypeBold:
		return "<b>", true
	case models.MessageEntityTypeItalic:
		return "<i>", true
	case models.MessageEntityTypeUnderline:
		return "<u>", true
	case models.MessageEntityTypeStrikethrough:
		return "<s>", true
	case models.MessageEntityTypeSpoiler:
		return "<tg-spoiler>", true
	case models.MessageEntityTypeCode:
		return "<code>", true
	case models.MessageEntityTypePre:
		if e.Language != "" {
			return fmt.Sprintf(`<pre><code class="language-%s">`, escapeRaw(e.Language)), true
		}
		return "<pre>", true
	case models.MessageEntityTypeBlockquote:
		return "<blockquote>", true
	case models.MessageEntityTypeExpandableBlockquote:
		return "<blockquote expandable>", true
	case models.MessageEntityTypeTextLink:
		return fmt.Sprintf(`<a href="%s">`, escapeRaw(e.URL)), true
	case models.MessageEntityTypeTextMention:
		if e.User == nil {
			return "", false
		}
		return fmt.Sprintf(`<a href="tg://user?id=%d">`, e.User.ID), true
	case models.MessageEntityTypeCustomEmoji:
		return fmt.Sprintf(`<tg-emoji emoji-id="%s">`, escapeRaw(e.CustomEmojiID)), true
	}
	return "", false
}

func closeTag(e models.MessageEntity) string {
	switch e.Type {
	case models.MessageEntityTypeBold:
		return "</b>"
	case models.MessageEntityTypeItalic:
		return "</i>"
	case models.MessageEntityTypeUnderline:
		return "</u>"
	case models.MessageEntityTypeStrikethrough:
		return "</s>"
	case models.MessageEntityTypeSpoiler:
		return "</tg-spoiler>"
	case models.MessageEntityTypeCode:
		return "</code>"
	case models.MessageEntityTypePre:
		if e.Language != "" {
			return "</code></pre>"
		}
		return "</pre>"
	case models.MessageEntityTypeBlockquote, models.MessageEntityTypeExpandableBlockquote:
		return "</blockquote>"
	case models.MessageEntityTypeTextLink, models.MessageEntityTypeTextMention:
		return "</a>"
	case models.MessageEntityTypeCustomEmoji:
		return "</tg-emoji>"
	}
	return ""
}
