package analizador

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser/browsertest"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/estado"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/mision"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/navegacion"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/reintento"
)

func sinEsperas(t *testing.T) {
	t.Helper()
	original := reintento.Dormir
	reintento.Dormir = func(time.Duration) {}
	t.Cleanup(func() { reintento.Dormir = original })
}

// portalFalso arma la pantalla de búsqueda mínima: input de RUT y botón.
func portalFalso() (*browsertest.Pagina, *browsertest.Elemento, *browsertest.Elemento) {
	pagina := browsertest.NuevaPagina("https://portal/app/#/busqueda")
	input := &browsertest.Elemento{}
	boton := &browsertest.Elemento{TextoValor: "Buscar"}
	pagina.Registrar("input#rutBusqueda", input)
	pagina.Registrar("button#btnBuscar", boton)
	return pagina, input, boton
}

func analizadorDePrueba(pagina *browsertest.Pagina, misiones []mision.Mision, decidir Decididor) *Analizador {
	ses := browser.NuevaSesion(pagina, zerolog.Nop())
	clas := estado.NuevoClasificador(pagina, zerolog.Nop())
	maq := navegacion.Nueva(ses, clas, navegacion.Credenciales{},
		navegacion.Opciones{URLPortal: "https://portal/app", TechoSpinner: time.Second, PlazoMenu: time.Second},
		nil, zerolog.Nop())
	return Nuevo(Opciones{
		Sesion:       ses,
		Maquina:      maq,
		Misiones:     misiones,
		Decidir:      decidir,
		TechoSpinner: time.Second,
	}, zerolog.Nop())
}

func misionDiabetes() mision.Mision {
	return mision.Mision{
		Nombre:         "Diabetes",
		Palabras:       []string{"diabetes"},
		CodigoObjetivo: "903001",
		VentanaDias:    365,
		VigenciaDias:   90,
	}
}

func TestProcesarSinCruceNoAbreLaCartola(t *testing.T) {
	pagina, input, boton := portalFalso()
	pagina.EvalFunc = func(string) (string, error) {
		return `[["Artrosis de Cadera","Caso Activo","","05/05/2020",""]]`, nil
	}

	anl := analizadorDePrueba(pagina, []mision.Mision{misionDiabetes()}, nil)
	paciente := models.Paciente{
		FechaReferencia: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Rut:             "12345678-5",
		Nombre:          "Juan Pérez",
	}

	res, err := anl.Procesar([]models.Paciente{paciente})
	require.NoError(t, err)
	require.Len(t, res.Filas, 1)
	assert.Empty(t, res.Problemas)

	fila := res.Filas[0]
	assert.Equal(t, "12345678-5", fila.Rut)
	assert.Equal(t, "Juan Pérez", fila.Nombre)
	assert.Equal(t, "Diabetes", fila.Mision)
	assert.Equal(t, "Sin caso", fila.CasoEncontrado)
	assert.Equal(t, "Sin Caso", fila.Seguimiento)
	assert.Equal(t, "Sin registros", fila.IPD)
	assert.Equal(t, "Sin registros", fila.SIC)

	// Se buscó al paciente pero nunca se pisó la cartola.
	assert.Equal(t, []string{"12345678-5"}, input.Escrito)
	assert.Equal(t, 1, boton.Clicks)
	assert.Contains(t, pagina.URLActual, "#/busqueda")
}

func TestProcesarConCruceAnalizaLaMision(t *testing.T) {
	pagina, _, _ := portalFalso()
	pagina.EvalFunc = func(string) (string, error) {
		return `[["Diabetes Mellitus Tipo 2 Decreto 140","Caso Activo","Confirmación","10/01/2024",""]]`, nil
	}

	link := &browsertest.Elemento{TextoValor: "Cartola"}
	link.AlClick = func() { pagina.URLActual = "https://portal/app/#/cartola" }
	pagina.Registrar("//a[contains(@href, '#/cartola')]", link)

	pagina.Registrar("table.tabla-cartola tbody", browsertest.Tabla([][]string{
		{"Diabetes Mellitus Tipo 2 Decreto 140", "Caso Activo", "Confirmación", "10/01/2024", ""},
	}))
	pagina.Registrar("app-historial-prestaciones table tbody", browsertest.Tabla([][]string{
		{"10/12/2025", "903001", "Consulta integral", "GES"},
		{"01/01/2020", "900000", "Otra cosa", ""},
	}))

	anl := analizadorDePrueba(pagina, []mision.Mision{misionDiabetes()}, nil)
	paciente := models.Paciente{
		FechaReferencia: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Rut:             "12345678-5",
		Nombre:          "Juan Pérez",
	}

	res, err := anl.Procesar([]models.Paciente{paciente})
	require.NoError(t, err)
	require.Len(t, res.Filas, 1)

	fila := res.Filas[0]
	assert.Equal(t, "Diabetes Mellitus Tipo 2", fila.CasoEncontrado, "el decreto se limpia")
	assert.Equal(t, "Caso Activo", fila.EstadoCaso)
	assert.Equal(t, "903001", fila.Objetivo.Codigo)
	assert.Equal(t, SeguimientoReciente, fila.Seguimiento)
	assert.Equal(t, 1, link.Clicks)
}

func TestProcesarPacienteAgotadoSeSaltaEnModoLote(t *testing.T) {
	sinEsperas(t)

	// Hay búsqueda pero sin botón: cada intento muere sin encontrarlo.
	pagina := browsertest.NuevaPagina("https://portal/app/#/busqueda")
	pagina.Registrar("input#rutBusqueda", &browsertest.Elemento{})

	anl := analizadorDePrueba(pagina, []mision.Mision{misionDiabetes()}, nil)
	res, err := anl.Procesar([]models.Paciente{{Rut: "12345678-5", Nombre: "Juan Pérez"}})

	require.NoError(t, err, "en modo lote se marca y se sigue")
	assert.Empty(t, res.Filas)
	require.Len(t, res.Problemas, 1)
	assert.Equal(t, "12345678-5", res.Problemas[0].Rut)
}

func TestProcesarConsultaAlDecididor(t *testing.T) {
	sinEsperas(t)

	pagina := browsertest.NuevaPagina("https://portal/app/#/busqueda")
	pagina.Registrar("input#rutBusqueda", &browsertest.Elemento{})

	consultas := 0
	decidir := func(p models.Paciente, err error) Decision {
		consultas++
		assert.Error(t, err)
		return Abortar
	}

	anl := analizadorDePrueba(pagina, []mision.Mision{misionDiabetes()}, decidir)
	res, err := anl.Procesar([]models.Paciente{
		{Rut: "12345678-5", Nombre: "Juan Pérez"},
		{Rut: "7654321-6", Nombre: "Ana Soto"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, consultas)
	require.Len(t, res.Problemas, 1, "abortar descarta lo que falta sin marcarlo")
	assert.Empty(t, res.Filas)
}

func TestProcesarConDisyuntorAbiertoDevuelveParciales(t *testing.T) {
	sinEsperas(t)

	pagina, _, _ := portalFalso()
	dis := reintento.NuevoDisyuntor(1)
	dis.Registrar(errors.New("falla previa"))

	ses := browser.NuevaSesion(pagina, zerolog.Nop())
	clas := estado.NuevoClasificador(pagina, zerolog.Nop())
	maq := navegacion.Nueva(ses, clas, navegacion.Credenciales{},
		navegacion.Opciones{TechoSpinner: time.Second}, dis, zerolog.Nop())
	anl := Nuevo(Opciones{
		Sesion:    ses,
		Maquina:   maq,
		Misiones:  []mision.Mision{misionDiabetes()},
		Disyuntor: dis,
	}, zerolog.Nop())

	res, err := anl.Procesar([]models.Paciente{{Rut: "12345678-5"}})
	assert.ErrorIs(t, err, reintento.ErrCircuitoAbierto)
	require.Len(t, res.Problemas, 1)
}

func TestProcesarRespetaLaDetencion(t *testing.T) {
	pagina, _, _ := portalFalso()
	anl := analizadorDePrueba(pagina, []mision.Mision{misionDiabetes()}, nil)

	anl.Interruptores().Detener()
	res, err := anl.Procesar([]models.Paciente{{Rut: "12345678-5"}})

	require.NoError(t, err)
	assert.Empty(t, res.Filas)
	assert.Empty(t, res.Problemas)
}

func TestInterruptores(t *testing.T) {
	i := NuevosInterruptores()
	assert.False(t, i.DebeDetener())
	assert.False(t, i.EnPausa())

	i.Pausar(true)
	assert.True(t, i.EnPausa())
	i.Pausar(false)
	assert.False(t, i.EnPausa())

	i.Detener()
	assert.True(t, i.DebeDetener())
}
