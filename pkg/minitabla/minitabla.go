// Package minitabla lee la tabla compacta de "casos encontrados" que el
// portal muestra justo después de buscar un paciente. El contrato es de
// mejor esfuerzo: siempre devuelve una lista, nunca un error — una tabla
// ausente es un resultado normal de "sin casos".
package minitabla

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

// Selectores CSS candidatos del tbody de resultados, en orden de
// preferencia. El markup cambia por despliegue.
var selectoresTbody = []string{
	"table.tabla-casos tbody",
	"div.resultados-busqueda table tbody",
	"app-resultado-busqueda table tbody",
	"table#tablaCasos tbody",
}

// Columnas fijas de la mini-tabla: problema, estado, motivo y las dos fechas.
const columnasEsperadas = 5

// Opciones del lector.
type Opciones struct {
	// FiltrarEventoSinCaso bota las filas cuyo problema normalizado
	// contiene "evento sin caso" (evento sin caso asociado en el portal).
	FiltrarEventoSinCaso bool

	// PlazoTbody es cuánto esperar la tabla antes de asumir "sin
	// resultados". Corto a propósito.
	PlazoTbody time.Duration
}

// Leer extrae las filas de la mini-tabla. Intenta primero el script en la
// página (una sola ida al navegador), después el recorrido del DOM en vivo,
// y al final el HTML parseado con goquery. Si todo falla, lista vacía.
func Leer(ses *browser.Sesion, log zerolog.Logger, opc Opciones) []models.FilaMiniTabla {
	log = log.With().Str("componente", "minitabla").Logger()
	if opc.PlazoTbody == 0 {
		opc.PlazoTbody = 3 * time.Second
	}

	crudas, err := leerPorScript(ses.Pagina)
	if err != nil {
		log.Warn().Err(err).Msg("script en página falló, recorriendo el DOM")
		crudas, err = leerPorDOM(ses.Pagina, opc.PlazoTbody)
	}
	if err != nil {
		log.Warn().Err(err).Msg("recorrido del DOM falló, parseando el HTML")
		crudas, err = leerPorHTML(ses.Pagina)
	}
	if err != nil {
		log.Error().Err(err).Msg("ninguna vía pudo leer la mini-tabla")
		return nil
	}

	filas := armarFilas(crudas, opc)
	log.Debug().Int("filas", len(filas)).Msg("mini-tabla leída")
	return filas
}

// leerPorScript trae todas las filas en una sola llamada Eval. El parseo de
// fechas queda para después: el motor de regex del host no existe dentro de
// la página.
func leerPorScript(p browser.Pagina) ([][]string, error) {
	script := `() => {
		const sels = ` + selectoresComoJS() + `;
		let tb = null;
		for (const s of sels) { tb = document.querySelector(s); if (tb) break; }
		if (!tb) return JSON.stringify([]);
		const filas = [];
		for (const tr of tb.querySelectorAll('tr')) {
			const tds = tr.querySelectorAll('td');
			if (tds.length === 0) continue;
			const celda = i => (tds[i] ? tds[i].innerText.trim() : '');
			filas.push([celda(0), celda(1), celda(2), celda(3), celda(4)]);
		}
		return JSON.stringify(filas);
	}`

	crudo, err := p.Eval(script)
	if err != nil {
		return nil, err
	}
	var crudas [][]string
	if err := json.Unmarshal([]byte(crudo), &crudas); err != nil {
		return nil, err
	}
	return crudas, nil
}

// leerPorDOM localiza el tbody y recorre tr/td elemento por elemento. Más
// lento, pero no depende de que el script corra.
func leerPorDOM(p browser.Pagina, plazo time.Duration) ([][]string, error) {
	candidatos := make([]selector.Localizador, 0, len(selectoresTbody))
	for _, css := range selectoresTbody {
		candidatos = append(candidatos, selector.Css(css))
	}

	tbody := selector.Buscar(p, candidatos, selector.Presente, plazo)
	if tbody == nil {
		// Sin tabla es "sin resultados", no una falla.
		return nil, nil
	}

	filas, err := tbody.Elementos("tr")
	if err != nil {
		return nil, err
	}

	var crudas [][]string
	for _, fila := range filas {
		celdas, err := fila.Elementos("td")
		if err != nil || len(celdas) == 0 {
			continue
		}
		cruda := make([]string, columnasEsperadas)
		for i := 0; i < columnasEsperadas && i < len(celdas); i++ {
			texto, err := celdas[i].Texto()
			if err != nil {
				continue
			}
			cruda[i] = texto
		}
		crudas = append(crudas, cruda)
	}
	return crudas, nil
}

// leerPorHTML parsea el HTML completo de la página con goquery. Último
// recurso cuando el DOM en vivo viene inestable.
func leerPorHTML(p browser.Pagina) ([][]string, error) {
	html, err := p.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var crudas [][]string
	for _, css := range selectoresTbody {
		tbody := doc.Find(css).First()
		if tbody.Length() == 0 {
			continue
		}
		tbody.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			celdas := tr.Find("td")
			if celdas.Length() == 0 {
				return
			}
			cruda := make([]string, columnasEsperadas)
			celdas.EachWithBreak(func(i int, td *goquery.Selection) bool {
				if i >= columnasEsperadas {
					return false
				}
				cruda[i] = strings.TrimSpace(td.Text())
				return true
			})
			crudas = append(crudas, cruda)
		})
		break
	}
	return crudas, nil
}

// armarFilas normaliza las crudas: recorta espacios, re-deriva las fechas
// con el regex del host, bota problemas vacíos y aplica el filtro de
// "evento sin caso".
func armarFilas(crudas [][]string, opc Opciones) []models.FilaMiniTabla {
	var filas []models.FilaMiniTabla
	for _, cruda := range crudas {
		if len(cruda) < 1 {
			continue
		}
		celda := func(i int) string {
			if i < len(cruda) {
				return strings.TrimSpace(cruda[i])
			}
			return ""
		}

		problema := celda(0)
		if problema == "" {
			continue
		}
		if opc.FiltrarEventoSinCaso &&
			strings.Contains(normalizador.NormalizarTexto(problema), "evento sin caso") {
			continue
		}

		filas = append(filas, models.FilaMiniTabla{
			Problema:    problema,
			Estado:      celda(1),
			Motivo:      celda(2),
			FechaInicio: normalizador.ExtraerFecha(celda(3)),
			FechaCierre: normalizador.ExtraerFecha(celda(4)),
		})
	}
	return filas
}

func selectoresComoJS() string {
	b, _ := json.Marshal(selectoresTbody)
	return string(b)
}
