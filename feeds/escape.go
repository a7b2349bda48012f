package feeds

import "strings"

var entityReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// Escape replaces markup-significant characters with entities. This is the
// only sanitization applied to feed content; '&' is left untouched.
func Escape(s string) string {
	return entityReplacer.Replace(s)
}
