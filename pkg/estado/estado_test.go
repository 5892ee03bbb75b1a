package estado

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser/browsertest"
)

func TestClasificarPorURL(t *testing.T) {
	casos := []struct {
		url      string
		esperado Estado
	}{
		{"https://portal/app/#/actualizaciones", Home},
		{"https://portal/app/#/busqueda", Busqueda},
		{"https://portal/app/#/cartola?rut=1", Cartola},
	}
	for _, c := range casos {
		pagina := browsertest.NuevaPagina(c.url)
		clas := NuevoClasificador(pagina, zerolog.Nop())
		assert.Equal(t, c.esperado, clas.Detectar(), "url %s", c.url)
	}
}

func TestClasificarLoginConCentinelas(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/app/#/login")
	pagina.Registrar("button#btnIngresar", &browsertest.Elemento{TextoValor: "Ingresar"})

	clas := NuevoClasificador(pagina, zerolog.Nop())
	assert.Equal(t, Login, clas.Detectar())
	assert.False(t, Login.Autenticado())
}

func TestClasificarLoginColgadoConMenuEsHome(t *testing.T) {
	// En algunas versiones el fragmento #/login queda colgado tras iniciar
	// sesión: sin botón de login y con menú a la vista, es HOME.
	pagina := browsertest.NuevaPagina("https://portal/app/#/login")
	pagina.Registrar("div#menuPrincipal", &browsertest.Elemento{})

	clas := NuevoClasificador(pagina, zerolog.Nop())
	assert.Equal(t, Home, clas.Detectar())
}

func TestClasificarDesconocido(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://otra-cosa/")
	clas := NuevoClasificador(pagina, zerolog.Nop())
	assert.Equal(t, Desconocido, clas.Detectar())
}

func TestDetectarUsaLaCache(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/app/#/busqueda")
	clas := NuevoClasificador(pagina, zerolog.Nop())

	momento := time.Now()
	clas.ahora = func() time.Time { return momento }

	assert.Equal(t, Busqueda, clas.Detectar())

	// La página cambió pero la caché sigue fresca: misma respuesta.
	pagina.URLActual = "https://portal/app/#/cartola"
	assert.Equal(t, Busqueda, clas.Detectar())

	// Vencida la caché se vuelve a sondear.
	momento = momento.Add(vidaCache + time.Second)
	assert.Equal(t, Cartola, clas.Detectar())
}

func TestInvalidarBorraLaCache(t *testing.T) {
	pagina := browsertest.NuevaPagina("https://portal/app/#/busqueda")
	clas := NuevoClasificador(pagina, zerolog.Nop())

	assert.Equal(t, Busqueda, clas.Detectar())

	pagina.URLActual = "https://portal/app/#/cartola"
	clas.Invalidar()
	assert.Equal(t, Cartola, clas.Detectar())
}

func TestAutenticado(t *testing.T) {
	assert.True(t, Home.Autenticado())
	assert.True(t, Busqueda.Autenticado())
	assert.True(t, Cartola.Autenticado())
	assert.False(t, Login.Autenticado())
	assert.False(t, SeleccionUnidad.Autenticado())
	assert.False(t, Desconocido.Autenticado())
}
