package minitabla

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser/browsertest"
)

var filasPortal = [][]string{
	{"Diabetes Mellitus Tipo 2 Decreto 140", "Caso Activo", "Confirmación", "10/01/2024", ""},
	{"Evento sin caso asociado", "", "", "05/03/2024", ""},
	{"", "Caso Activo", "", "", ""},
}

func opcionesRapidas() Opciones {
	return Opciones{PlazoTbody: 50 * time.Millisecond}
}

func sesionDePrueba(p *browsertest.Pagina) *browser.Sesion {
	return browser.NuevaSesion(p, zerolog.Nop())
}

func TestLeerPorScript(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/#/busqueda")
	pagina.EvalFunc = func(string) (string, error) {
		return `[["Diabetes Mellitus Tipo 2 Decreto 140","Caso Activo","Confirmación","10/01/2024",""],
			["Evento sin caso asociado","","","05/03/2024",""],
			["","Caso Activo","","",""]]`, nil
	}

	filas := Leer(sesionDePrueba(pagina), zerolog.Nop(), opcionesRapidas())
	require.Len(t, filas, 2, "la fila sin problema se descarta")
	assert.Equal(t, "Diabetes Mellitus Tipo 2 Decreto 140", filas[0].Problema)
	assert.Equal(t, "Caso Activo", filas[0].Estado)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), filas[0].FechaInicio)
	assert.True(t, filas[0].FechaCierre.IsZero())
}

func TestLeerCaeAlDOMSiElScriptFalla(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/#/busqueda")
	// Sin EvalFunc el script falla y el lector recorre el DOM en vivo.
	pagina.Registrar("table.tabla-casos tbody", browsertest.Tabla(filasPortal))

	filas := Leer(sesionDePrueba(pagina), zerolog.Nop(), opcionesRapidas())
	require.Len(t, filas, 2)
	assert.Equal(t, "Diabetes Mellitus Tipo 2 Decreto 140", filas[0].Problema)
	assert.Equal(t, "Evento sin caso asociado", filas[1].Problema)
}

func TestLeerDOMYScriptEntreganLoMismo(t *testing.T) {
	porScript := browsertest.NuevaPagina("https://portal/#/busqueda")
	porScript.EvalFunc = func(string) (string, error) {
		return `[["Diabetes Mellitus Tipo 2 Decreto 140","Caso Activo","Confirmación","10/01/2024",""],
			["Evento sin caso asociado","","","05/03/2024",""],
			["","Caso Activo","","",""]]`, nil
	}

	porDOM := browsertest.NuevaPagina("https://portal/#/busqueda")
	porDOM.Registrar("table.tabla-casos tbody", browsertest.Tabla(filasPortal))

	assert.Equal(t,
		Leer(sesionDePrueba(porScript), zerolog.Nop(), opcionesRapidas()),
		Leer(sesionDePrueba(porDOM), zerolog.Nop(), opcionesRapidas()))
}

func TestLeerCaeAlHTMLSiElDOMFalla(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/#/busqueda")
	pagina.Registrar("table.tabla-casos tbody", &browsertest.Elemento{
		ErrHijos: browser.ErrElementoObsoleto,
	})
	pagina.HTMLValor = `<html><body>
		<table class="tabla-casos"><tbody>
			<tr><td>Diabetes Mellitus Tipo 2 Decreto 140</td><td>Caso Activo</td><td>Confirmación</td><td>10/01/2024</td><td></td></tr>
		</tbody></table>
	</body></html>`

	filas := Leer(sesionDePrueba(pagina), zerolog.Nop(), opcionesRapidas())
	require.Len(t, filas, 1)
	assert.Equal(t, "Diabetes Mellitus Tipo 2 Decreto 140", filas[0].Problema)
}

func TestLeerSinTablaEsSinResultados(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/#/busqueda")
	assert.Empty(t, Leer(sesionDePrueba(pagina), zerolog.Nop(), opcionesRapidas()))
}

func TestFiltroEventoSinCaso(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/#/busqueda")
	pagina.Registrar("table.tabla-casos tbody", browsertest.Tabla(filasPortal))

	conFiltro := Leer(sesionDePrueba(pagina), zerolog.Nop(), Opciones{
		FiltrarEventoSinCaso: true,
		PlazoTbody:           50 * time.Millisecond,
	})
	require.Len(t, conFiltro, 1)
	assert.Equal(t, "Diabetes Mellitus Tipo 2 Decreto 140", conFiltro[0].Problema)

	sinFiltro := Leer(sesionDePrueba(pagina), zerolog.Nop(), opcionesRapidas())
	assert.Len(t, sinFiltro, 2)
}

func TestArmarFilasRecortaYDescartaVacias(t *testing.T) {
	crudas := [][]string{
		{"  Diabetes  ", " Caso Activo ", "", " 10/01/2024 ", ""},
		{"   ", "Caso Activo", "", "", ""},
		{},
	}
	filas := armarFilas(crudas, Opciones{})
	require.Len(t, filas, 1)
	assert.Equal(t, "Diabetes", filas[0].Problema)
	assert.Equal(t, "Caso Activo", filas[0].Estado)
}
