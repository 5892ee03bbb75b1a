// Package cartola lee la vista de detalle completo de un paciente: la lista
// de casos, el historial de prestaciones y las sub-tablas especializadas
// (IPD, OA, APS, SIC). Cada sección tiene sus propias mañas de markup, por
// eso los descriptores son datos y el lector es uno solo.
package cartola

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

// Seccion describe una sub-tabla de la cartola: cómo encontrar su título,
// cómo llegar del título al tbody (el encabezado queda 1 a 4 niveles por
// encima de la tabla según la versión del portal), y qué columna es qué.
type Seccion struct {
	Nombre           string
	FragmentoTitulo  string
	RutasDesdeTitulo []string
	RutasAbsolutas   []selector.Localizador

	ColFecha       int
	ColEstado      int
	ColDiagnostico int
	ColDetalle     int
}

// rutasTituloComunes cubre el encabezado 1 a 4 niveles arriba del tbody.
var rutasTituloComunes = []string{
	"./following-sibling::table[1]/tbody",
	"../following-sibling::table[1]/tbody",
	"../../following-sibling::table[1]/tbody",
	"../../../following-sibling::table[1]/tbody",
	"./following-sibling::div[1]//table/tbody",
	"../following-sibling::div[1]//table/tbody",
}

// Las cuatro sub-tablas de la cartola más el historial de prestaciones.
var (
	IPD = Seccion{
		Nombre:           "IPD",
		FragmentoTitulo:  "informe proceso diagnostico",
		RutasDesdeTitulo: rutasTituloComunes,
		RutasAbsolutas: []selector.Localizador{
			selector.Css("app-ipd table tbody"),
			selector.Css("div.seccion-ipd table tbody"),
		},
		ColFecha: 0, ColEstado: 1, ColDiagnostico: 2, ColDetalle: 3,
	}
	OA = Seccion{
		Nombre:           "OA",
		FragmentoTitulo:  "orden de atencion",
		RutasDesdeTitulo: rutasTituloComunes,
		RutasAbsolutas: []selector.Localizador{
			selector.Css("app-orden-atencion table tbody"),
			selector.Css("div.seccion-oa table tbody"),
		},
		ColFecha: 0, ColEstado: 2, ColDiagnostico: 1, ColDetalle: 3,
	}
	APS = Seccion{
		Nombre:           "APS",
		FragmentoTitulo:  "hoja diaria aps",
		RutasDesdeTitulo: rutasTituloComunes,
		RutasAbsolutas: []selector.Localizador{
			selector.Css("app-hoja-diaria table tbody"),
			selector.Css("div.seccion-aps table tbody"),
		},
		ColFecha: 0, ColEstado: 1, ColDiagnostico: 2, ColDetalle: 3,
	}
	SIC = Seccion{
		Nombre:           "SIC",
		FragmentoTitulo:  "solicitud de interconsulta",
		RutasDesdeTitulo: rutasTituloComunes,
		RutasAbsolutas: []selector.Localizador{
			selector.Css("app-interconsulta table tbody"),
			selector.Css("div.seccion-sic table tbody"),
		},
		ColFecha: 0, ColEstado: 1, ColDiagnostico: 2, ColDetalle: 3,
	}
)

// Selectores CSS de los encabezados donde buscar el título de una sección.
var selectoresTitulo = []string{
	"h3", "h4", "h5", "legend",
	"span.titulo-seccion", "div.encabezado-seccion", "mat-panel-title",
}

var reContadorCero = regexp.MustCompile(`\(\s*0\s*\)\s*$`)

// LeerSeccion extrae una sub-tabla de la cartola con el caso ya expandido.
// La ausencia de la sección es normal (muchos casos no tienen órdenes de
// atención, por ejemplo) y devuelve lista vacía.
func LeerSeccion(ses *browser.Sesion, log zerolog.Logger, sec Seccion, maxFilas int) []models.RegistroSeccion {
	log = log.With().Str("componente", "cartola").Str("seccion", sec.Nombre).Logger()

	titulo := buscarTitulo(ses.Pagina, sec.FragmentoTitulo)
	if titulo != nil {
		if texto, err := titulo.Texto(); err == nil && reContadorCero.MatchString(texto) {
			// "(0)" en el encabezado confirma sección vacía: ni intentar
			// buscar la tabla.
			return nil
		}
	}

	var tbody browser.Elemento
	if titulo != nil {
		tbody = selector.BuscarEn(titulo, sec.RutasDesdeTitulo)
	}
	if tbody == nil {
		tbody = selector.Buscar(ses.Pagina, sec.RutasAbsolutas, selector.Presente, 1500*time.Millisecond)
	}
	if tbody == nil {
		log.Debug().Msg("sección ausente")
		return nil
	}

	registros := OrdenarYTruncar(parsearRegistros(tbody, sec), maxFilas)
	log.Debug().Int("filas", len(registros)).Msg("sección leída")
	return registros
}

func parsearRegistros(tbody browser.Elemento, sec Seccion) []models.RegistroSeccion {
	filas, err := tbody.Elementos("tr")
	if err != nil {
		return nil
	}

	var registros []models.RegistroSeccion
	for _, fila := range filas {
		celdas, err := fila.Elementos("td")
		if err != nil || len(celdas) == 0 {
			continue
		}
		celda := func(i int) string {
			if i >= 0 && i < len(celdas) {
				if texto, err := celdas[i].Texto(); err == nil {
					return texto
				}
			}
			return ""
		}

		reg := models.RegistroSeccion{
			Estado:      celda(sec.ColEstado),
			Diagnostico: celda(sec.ColDiagnostico),
			Detalle:     celda(sec.ColDetalle),
		}
		reg.Fecha = normalizador.ExtraerFecha(celda(sec.ColFecha))
		if reg.Fecha.IsZero() {
			reg.Fecha = normalizador.ExtraerFechaFlexible(celda(sec.ColFecha))
		}
		registros = append(registros, reg)
	}
	return registros
}

// OrdenarYTruncar deja los registros descendentes por fecha y corta a los
// maxFilas más recientes (maxFilas <= 0 no corta). Las fechas ilegibles
// (cero) quedan al final.
func OrdenarYTruncar(registros []models.RegistroSeccion, maxFilas int) []models.RegistroSeccion {
	sort.SliceStable(registros, func(i, j int) bool {
		return registros[i].Fecha.After(registros[j].Fecha)
	})
	if maxFilas > 0 && len(registros) > maxFilas {
		return registros[:maxFilas]
	}
	return registros
}

// Resumir arma el texto de reporte de una sección: una entrada por línea,
// fecha primero, de la más nueva a la más vieja.
func Resumir(registros []models.RegistroSeccion) string {
	if len(registros) == 0 {
		return "Sin registros"
	}
	lineas := make([]string, 0, len(registros))
	for _, r := range registros {
		fecha := "sin fecha"
		if !r.Fecha.IsZero() {
			fecha = r.Fecha.Format("02/01/2006")
		}
		partes := []string{fecha}
		for _, campo := range []string{r.Estado, r.Diagnostico, r.Detalle} {
			if campo != "" {
				partes = append(partes, campo)
			}
		}
		lineas = append(lineas, strings.Join(partes, " - "))
	}
	return strings.Join(lineas, " | ")
}

// buscarTitulo recorre los encabezados visibles buscando el primero cuyo
// texto normalizado contenga el fragmento de la sección.
func buscarTitulo(p browser.Pagina, fragmento string) browser.Elemento {
	clave := normalizador.NormalizarTexto(fragmento)
	for _, css := range selectoresTitulo {
		els, err := p.Elementos(css)
		if err != nil {
			continue
		}
		for _, el := range els {
			texto, err := el.Texto()
			if err != nil {
				continue
			}
			if strings.Contains(normalizador.NormalizarTexto(texto), clave) {
				return el
			}
		}
	}
	return nil
}
