package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Latin letters with diacritics that show up in product names.
	transliterator = strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
		"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
		"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u", "ý", "y", "ÿ", "y",
		"ğ", "g", "ş", "s", "ß", "ss", "æ", "ae", "œ", "oe",
		"&", " and ",
	)
)

// Generate creates a URL-friendly slug from a product or category name.
//
//	"Classic T-Shirt"     -> "classic-t-shirt"
//	"Café Crème & Co."    -> "cafe-creme-and-co"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = transliterator.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
