// redact маскирует чувствительные значения перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Login маскирует логин формы входа: e-mail через Email, имя пользователя целиком не пишется.
func Login(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

// Bearer маскирует значение заголовка Authorization, сохраняя схему.
func Bearer(header string) string {
	if header == "" {
		return ""
	}

	if scheme, _, ok := strings.Cut(header, " "); ok {
		return scheme + " " + Token()
	}

	return Token()
}

func Token() string { return "[REDACTED_TOKEN]" }
