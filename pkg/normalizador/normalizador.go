// Package normalizador reúne las funciones puras que convierten el texto
// crudo raspado del portal a formas canónicas comparables.
package normalizador

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	quitarMarcas = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	reNoAlfanumerico = regexp.MustCompile(`[^a-z0-9]+`)
	reFecha          = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	reFechaFlexible  = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	reDecreto        = regexp.MustCompile(`(?i)\s+(decreto\s*\d{1,4}|dec\.?\s*\d{1,4}|d\s*\d{2,3}|\d{2,3})$`)
	rePuntuacionFin  = regexp.MustCompile(`[\s,.;:()-]+$`)
)

// NormalizarTexto lleva cualquier texto a una clave comparable: sin tildes,
// en minúsculas, con los tramos no alfanuméricos colapsados a un espacio.
// Es idempotente y total; la entrada vacía devuelve "".
func NormalizarTexto(s string) string {
	if s == "" {
		return ""
	}
	plano, _, err := transform.String(quitarMarcas, s)
	if err != nil {
		plano = s
	}
	plano = strings.ToLower(plano)
	plano = reNoAlfanumerico.ReplaceAllString(plano, " ")
	return strings.TrimSpace(plano)
}

// LimpiarNombreCaso quita del final la referencia al decreto ("Decreto 140",
// "Dec. 140", "D 140" o un número suelto de 2-3 dígitos) y los restos de
// puntuación. Se aplica hasta punto fijo, así limpiar dos veces da lo mismo
// que limpiar una.
func LimpiarNombreCaso(s string) string {
	actual := strings.TrimSpace(s)
	for {
		siguiente := rePuntuacionFin.ReplaceAllString(actual, "")
		siguiente = reDecreto.ReplaceAllString(siguiente, "")
		siguiente = rePuntuacionFin.ReplaceAllString(siguiente, "")
		siguiente = strings.TrimSpace(siguiente)
		if siguiente == actual {
			return actual
		}
		actual = siguiente
	}
}

// ExtraerFecha busca la primera subcadena dd/mm/yyyy y la devuelve como
// fecha. Si no hay ninguna, o la que hay no es una fecha real, devuelve el
// cero de time.Time. No intenta otros formatos.
func ExtraerFecha(s string) time.Time {
	m := reFecha.FindString(s)
	if m == "" {
		return time.Time{}
	}
	t, err := time.Parse("02/01/2006", m)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExtraerFechaFlexible acepta además guiones, un solo dígito en día o mes y
// años de dos cifras (siglo 2000). La usan los lectores de secciones cuando
// la columna de fecha viene sucia.
func ExtraerFechaFlexible(s string) time.Time {
	m := reFechaFlexible.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}
	}
	dia, mes, anio := m[1], m[2], m[3]
	if len(dia) == 1 {
		dia = "0" + dia
	}
	if len(mes) == 1 {
		mes = "0" + mes
	}
	if len(anio) == 2 {
		anio = "20" + anio
	}
	t, err := time.Parse("02/01/2006", dia+"/"+mes+"/"+anio)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ContieneNormalizado compara por subcadena sobre las formas normalizadas.
func ContieneNormalizado(texto, fragmento string) bool {
	return strings.Contains(NormalizarTexto(texto), NormalizarTexto(fragmento))
}
