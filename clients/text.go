package clients

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences/english"
)

var (
	htmlTagRE        = regexp.MustCompile(`<[^>]*>`)
	tableSeparatorRE = regexp.MustCompile(`^\s*\|\s*[-=\s]+\|\s*$`)
)

// cleanText removes markdown and markup that would be read out loud.
func cleanText(text string) string {
	text = strings.NewReplacer(
		"*", "", // bold/italic
		"#", "", // headers
		"_", "", // underline
		"~", "", // strikethrough
		"`", "", // code
		"[", "",
		"]", "",
	).Replace(text)
	text = htmlTagRE.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if tableSeparatorRE.MatchString(strings.TrimSpace(line)) {
			continue
		}
		filtered = append(filtered, strings.ReplaceAll(line, "|", ""))
	}
	return strings.TrimSpace(strings.Join(filtered, "\n"))
}

// fitSentences keeps whole sentences while the text stays within limit
// characters. A first sentence longer than limit is cut.
func fitSentences(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	var b strings.Builder
	count := 0
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err == nil {
		for _, s := range tokenizer.Tokenize(text) {
			sentence := strings.TrimSpace(s.Text)
			if sentence == "" {
				continue
			}
			n := utf8.RuneCountInString(sentence)
			if count > 0 {
				n++
			}
			if count+n > limit {
				break
			}
			if count > 0 {
				b.WriteString(" ")
			}
			b.WriteString(sentence)
			count += n
		}
	}
	if count > 0 {
		return b.String()
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit]))
}

func prepareSpeechInput(text string, limit int) string {
	return fitSentences(cleanText(text), limit)
}
