package cartola

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

// Localizadores de la cartola.
var (
	locTbodyCasos = []selector.Localizador{
		selector.Css("table.tabla-cartola tbody"),
		selector.Css("app-lista-casos table tbody"),
		selector.Css("table#tablaCartola tbody"),
	}
	locFiltroGES = []selector.Localizador{
		selector.Css("input#soloHitosGes"),
		selector.Xp("//label[contains(., 'hitos GES')]/preceding-sibling::input[@type='checkbox']"),
		selector.Xp("//mat-checkbox[contains(., 'GES')]//input"),
	}
	locTbodyHistorial = []selector.Localizador{
		selector.Css("app-historial-prestaciones table tbody"),
		selector.Css("div.historial-prestaciones table tbody"),
		selector.Css("table#tablaPrestaciones tbody"),
	}
)

// Columnas del historial de prestaciones.
const (
	colHistFecha       = 0
	colHistCodigo      = 1
	colHistDescripcion = 2
	colHistReferencia  = 3
)

// ActivarFiltroGES marca el checkbox de "solo hitos GES" si existe y está
// desmarcado. Que no exista es normal en versiones viejas del portal.
func ActivarFiltroGES(ses *browser.Sesion, log zerolog.Logger, techoSpinner time.Duration) {
	caja := selector.Buscar(ses.Pagina, locFiltroGES, selector.Presente, 1500*time.Millisecond)
	if caja == nil {
		return
	}
	if caja.Atributo("checked") != "" {
		return
	}
	if err := selector.ClickYEsperar(ses, caja, techoSpinner); err != nil {
		log.Warn().Err(err).Msg("no se pudo activar el filtro de hitos GES")
	}
}

// LeerListaCasos extrae la lista completa de casos de la cartola. Misma
// forma de columnas que la mini-tabla.
func LeerListaCasos(ses *browser.Sesion, log zerolog.Logger) []models.Caso {
	tbody := selector.Buscar(ses.Pagina, locTbodyCasos, selector.Presente, 3*time.Second)
	if tbody == nil {
		return nil
	}
	filas, err := tbody.Elementos("tr")
	if err != nil {
		return nil
	}

	var casos []models.Caso
	for _, fila := range filas {
		celdas, err := fila.Elementos("td")
		if err != nil || len(celdas) == 0 {
			continue
		}
		celda := func(i int) string {
			if i < len(celdas) {
				if texto, err := celdas[i].Texto(); err == nil {
					return texto
				}
			}
			return ""
		}
		problema := celda(0)
		if problema == "" {
			continue
		}
		casos = append(casos, models.Caso{
			Problema:    problema,
			Estado:      celda(1),
			Motivo:      celda(2),
			FechaInicio: normalizador.ExtraerFecha(celda(3)),
			FechaCierre: normalizador.ExtraerFecha(celda(4)),
		})
	}
	log.Debug().Int("casos", len(casos)).Msg("lista de casos leída")
	return casos
}

// ExpandirCaso abre el detalle del caso cuyo problema coincide con el dado,
// clickeando el toggle de su fila. Devuelve error si la fila no aparece.
func ExpandirCaso(ses *browser.Sesion, problema string, techoSpinner time.Duration) error {
	toggle, err := buscarToggleDeCaso(ses.Pagina, problema)
	if err != nil {
		return err
	}
	return selector.ClickYEsperar(ses, toggle, techoSpinner)
}

// ColapsarCaso cierra el detalle. Es de mejor esfuerzo: se llama siempre,
// incluso tras un error, para que el estado expandido no se filtre a la
// lectura de la siguiente misión.
func ColapsarCaso(ses *browser.Sesion, log zerolog.Logger, problema string, techoSpinner time.Duration) {
	toggle, err := buscarToggleDeCaso(ses.Pagina, problema)
	if err != nil {
		log.Warn().Err(err).Str("caso", problema).Msg("no se encontró el toggle para colapsar")
		return
	}
	if err := selector.ClickYEsperar(ses, toggle, techoSpinner); err != nil {
		log.Warn().Err(err).Str("caso", problema).Msg("no se pudo colapsar el caso")
	}
}

func buscarToggleDeCaso(p browser.Pagina, problema string) (browser.Elemento, error) {
	clave := normalizador.NormalizarTexto(problema)

	tbody := selector.Buscar(p, locTbodyCasos, selector.Presente, 3*time.Second)
	if tbody == nil {
		return nil, fmt.Errorf("tabla de casos de la cartola: %w", browser.ErrElementoNoEncontrado)
	}
	filas, err := tbody.Elementos("tr")
	if err != nil {
		return nil, err
	}

	for _, fila := range filas {
		texto, err := fila.Texto()
		if err != nil {
			continue
		}
		if !strings.Contains(normalizador.NormalizarTexto(texto), clave) {
			continue
		}
		// El toggle es el checkbox o botón de la primera celda según la
		// versión del portal.
		for _, css := range []string{"input[type='checkbox']", "button.expandir", "td:first-child button", "td:first-child input"} {
			toggles, err := fila.Elementos(css)
			if err == nil && len(toggles) > 0 {
				return toggles[0], nil
			}
		}
		// Sin toggle propio: el click va a la fila entera.
		return fila, nil
	}
	return nil, fmt.Errorf("fila del caso %q: %w", problema, browser.ErrElementoNoEncontrado)
}

// LeerHistorial extrae el historial de prestaciones del caso expandido,
// ordenado de la prestación más nueva a la más vieja. Cuando la columna de
// fecha viene ilegible se rastrean todas las celdas con el regex de fechas.
func LeerHistorial(ses *browser.Sesion, log zerolog.Logger, maxFilas int) []models.RegistroPrestacion {
	log = log.With().Str("componente", "cartola").Str("seccion", "historial").Logger()

	tbody := selector.Buscar(ses.Pagina, locTbodyHistorial, selector.Presente, 3*time.Second)
	if tbody == nil {
		log.Debug().Msg("historial ausente")
		return nil
	}
	filas, err := tbody.Elementos("tr")
	if err != nil {
		return nil
	}

	var registros []models.RegistroPrestacion
	for _, fila := range filas {
		celdas, err := fila.Elementos("td")
		if err != nil || len(celdas) == 0 {
			continue
		}
		textos := make([]string, len(celdas))
		for i, c := range celdas {
			if t, err := c.Texto(); err == nil {
				textos[i] = t
			}
		}
		celda := func(i int) string {
			if i < len(textos) {
				return textos[i]
			}
			return ""
		}

		reg := models.RegistroPrestacion{
			Codigo:      strings.TrimSpace(celda(colHistCodigo)),
			Descripcion: celda(colHistDescripcion),
			Referencia:  celda(colHistReferencia),
		}
		reg.Fecha = normalizador.ExtraerFecha(celda(colHistFecha))
		if reg.Fecha.IsZero() {
			// Columna primaria ilegible: buscar una fecha en cualquier celda.
			for _, t := range textos {
				if f := normalizador.ExtraerFechaFlexible(t); !f.IsZero() {
					reg.Fecha = f
					break
				}
			}
		}
		if reg.Codigo == "" && reg.Descripcion == "" {
			continue
		}
		registros = append(registros, reg)
	}

	sort.SliceStable(registros, func(i, j int) bool {
		return registros[i].Fecha.After(registros[j].Fecha)
	})
	if maxFilas > 0 && len(registros) > maxFilas {
		registros = registros[:maxFilas]
	}
	log.Debug().Int("prestaciones", len(registros)).Msg("historial leído")
	return registros
}
