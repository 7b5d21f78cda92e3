package extraction

import (
	"regexp"
	"strings"
)

// ContactHints 是基于正则的低置信度联系人信息，后续可被 AI 分析覆盖。
type ContactHints struct {
	Name  string
	Email string
	Phone string
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)
)

// ExtractContactHints seeds contact info from extracted text: an email regex,
// a phone regex, and the first non-empty line as the candidate name.
func ExtractContactHints(text string) ContactHints {
	hints := ContactHints{
		Email: emailPattern.FindString(text),
		Phone: strings.TrimSpace(phonePattern.FindString(text)),
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// 首行若是邮箱或电话则不当作姓名。
		if strings.Contains(line, "@") || phonePattern.MatchString(line) {
			break
		}
		if len(line) <= 120 {
			hints.Name = line
		}
		break
	}

	return hints
}
