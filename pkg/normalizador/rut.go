package normalizador

import "strings"

// LimpiarRut deja el RUT como lo espera el buscador del portal: sin puntos
// ni espacios, con guion antes del dígito verificador en mayúscula.
func LimpiarRut(rut string) string {
	limpio := strings.ToUpper(strings.TrimSpace(rut))
	limpio = strings.ReplaceAll(limpio, ".", "")
	limpio = strings.ReplaceAll(limpio, " ", "")
	if limpio == "" {
		return ""
	}
	cuerpo := strings.ReplaceAll(limpio, "-", "")
	if len(cuerpo) < 2 {
		return limpio
	}
	return cuerpo[:len(cuerpo)-1] + "-" + cuerpo[len(cuerpo)-1:]
}

// ValidarRut verifica largo, caracteres y dígito verificador (módulo 11).
func ValidarRut(rut string) bool {
	limpio := LimpiarRut(rut)
	partes := strings.Split(limpio, "-")
	if len(partes) != 2 || len(partes[0]) < 6 || len(partes[0]) > 9 {
		return false
	}
	cuerpo, dv := partes[0], partes[1]
	suma := 0
	factor := 2
	for i := len(cuerpo) - 1; i >= 0; i-- {
		c := cuerpo[i]
		if c < '0' || c > '9' {
			return false
		}
		suma += int(c-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	resto := 11 - suma%11
	esperado := ""
	switch resto {
	case 11:
		esperado = "0"
	case 10:
		esperado = "K"
	default:
		esperado = string(rune('0' + resto))
	}
	return dv == esperado
}
