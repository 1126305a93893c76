package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"decision-server/internal/model"
)

// MaxRoleLength - максимальная длина роли в символах (рунах).
const MaxRoleLength = 100

// Запрещённые слова в роли. Сравнение без учёта регистра, по границам слов.
var denylistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ass|shit|fuck|bitch|cunt|dick|pussy|whore|slut)\b`),
	regexp.MustCompile(`(?i)\b(nigger|nigga|chink|spic|kike|gook)\b`),
	regexp.MustCompile(`(?i)\b(rape|kill|murder|suicide|terrorist)\b`),
	regexp.MustCompile(`(?i)\b(hitler|nazi|kkk|isis|al-qaeda)\b`),
}

// ValidateRole проверяет роль, введённую пользователем.
// Пустая роль, слишком длинная роль и роль из запрещённых слов отклоняются с ErrInvalidRole.
func ValidateRole(role string) error {
	if strings.TrimSpace(role) == "" {
		return fmt.Errorf("%w: role cannot be empty", model.ErrInvalidRole)
	}
	if utf8.RuneCountInString(role) > MaxRoleLength {
		return fmt.Errorf("%w: role must be at most %d characters", model.ErrInvalidRole, MaxRoleLength)
	}
	for _, p := range denylistPatterns {
		if p.MatchString(role) {
			return fmt.Errorf("%w: role contains inappropriate content", model.ErrInvalidRole)
		}
	}
	return nil
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	htmlEscaper   = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
)

// SanitizeForDisplay готовит произвольный текст к выводу в HTML:
// удаляет блоки <script>, затем остальные теги, затем экранирует & < > " '.
func SanitizeForDisplay(text string) string {
	if text == "" {
		return ""
	}
	text = scriptBlockRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "")
	return htmlEscaper.Replace(text)
}
