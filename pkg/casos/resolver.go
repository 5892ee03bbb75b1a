// Package casos decide qué caso abrir cuando la búsqueda devuelve más de
// uno para la misma palabra clave.
package casos

import (
	"strings"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
)

// Coincide cruza el nombre buscado contra el problema del caso en ambos
// sentidos: sirve tanto si el operador escribió de más como si escribió una
// palabra parcial.
func Coincide(caso models.Caso, buscado string) bool {
	problema := normalizador.NormalizarTexto(caso.Problema)
	clave := normalizador.NormalizarTexto(buscado)
	if problema == "" || clave == "" {
		return false
	}
	return strings.Contains(problema, clave) || strings.Contains(clave, problema)
}

// Resolver elige el único caso a abrir entre los que coinciden con el
// nombre buscado, con la razón de la elección para el log.
//
// Prioridad estricta: un caso no cerrado le gana a uno cerrado siempre; la
// recencia solo desempata dentro del grupo elegido.
func Resolver(casos []models.Caso, buscado string) (*models.Caso, string) {
	var coincidentes []models.Caso
	for _, c := range casos {
		if Coincide(c, buscado) {
			coincidentes = append(coincidentes, c)
		}
	}

	switch len(coincidentes) {
	case 0:
		return nil, "ningún caso coincidió"
	case 1:
		unico := coincidentes[0]
		return &unico, "coincidencia única"
	}

	var abiertos []models.Caso
	for _, c := range coincidentes {
		if !c.Cerrado() {
			abiertos = append(abiertos, c)
		}
	}

	if len(abiertos) > 0 {
		elegido := abiertos[0]
		for _, c := range abiertos[1:] {
			if c.FechaInicio.After(elegido.FechaInicio) {
				elegido = c
			}
		}
		if elegido.FechaInicio.IsZero() {
			// Ninguno trae fecha: queda el primero en orden original.
			elegido = abiertos[0]
			return &elegido, "varios no cerrados sin fecha, primero en orden"
		}
		return &elegido, "no cerrado con inicio más reciente"
	}

	// Todos cerrados: manda la fecha de cierre más reciente.
	elegido := coincidentes[0]
	for _, c := range coincidentes[1:] {
		if c.FechaCierre.After(elegido.FechaCierre) {
			elegido = c
		}
	}
	if elegido.FechaCierre.IsZero() {
		elegido = coincidentes[0]
		return &elegido, "todos cerrados sin fecha, primero en orden"
	}
	return &elegido, "cerrado con cierre más reciente"
}

// MasReciente es la variante simple que usa el analizador dentro de la
// cartola: entre los casos que cruzan con alguna palabra clave, el de
// inicio más reciente, sin mirar abierto/cerrado.
func MasReciente(casos []models.Caso, palabras []string) *models.Caso {
	var elegido *models.Caso
	for i := range casos {
		c := &casos[i]
		if !coincideAlguna(*c, palabras) {
			continue
		}
		if elegido == nil || c.FechaInicio.After(elegido.FechaInicio) {
			elegido = c
		}
	}
	return elegido
}

func coincideAlguna(caso models.Caso, palabras []string) bool {
	for _, p := range palabras {
		if normalizador.ContieneNormalizado(caso.Problema, p) {
			return true
		}
	}
	return false
}
