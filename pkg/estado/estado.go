// Package estado clasifica en qué pantalla del portal está la pestaña.
// No es la máquina de transiciones (eso vive en navegacion): solo mira la
// URL y un par de elementos centinela, con una caché corta para no sondear
// el DOM en cada lectura.
package estado

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

// Estado es la pantalla clasificada.
type Estado string

const (
	Login           Estado = "LOGIN"
	SeleccionUnidad Estado = "SELECCION_UNIDAD"
	Home            Estado = "HOME"
	Busqueda        Estado = "BUSQUEDA"
	Cartola         Estado = "CARTOLA"
	Desconocido     Estado = "DESCONOCIDO"
)

// Autenticado agrupa las pantallas que implican sesión iniciada.
func (e Estado) Autenticado() bool {
	return e == Home || e == Busqueda || e == Cartola
}

// Centinelas por pantalla. Listas ordenadas: el markup difiere entre
// versiones del portal.
var (
	centinelaBotonLogin = []selector.Localizador{
		selector.Css("button#btnIngresar"),
		selector.Xp("//button[contains(., 'Ingresar')]"),
		selector.Css("form.login button[type='submit']"),
	}
	centinelaSelectorUnidad = []selector.Localizador{
		selector.Xp("//h3[contains(., 'Seleccione') and contains(., 'Establecimiento')]"),
		selector.Css("div.seleccion-unidad"),
	}
	centinelaMenu = []selector.Localizador{
		selector.Css("mat-sidenav div.menu-lateral"),
		selector.Css("div#menuPrincipal"),
		selector.Css("ul.nav-sidebar"),
	}
	centinelaInputRut = []selector.Localizador{
		selector.Css("input#rutBusqueda"),
		selector.Css("input[formcontrolname='run']"),
		selector.Xp("//input[contains(@placeholder, 'RUT') or contains(@placeholder, 'RUN')]"),
	}
)

const vidaCache = 5 * time.Second

// Clasificador detecta la pantalla actual con caché corta. Cualquier acción
// que cambie la página debe llamar a Invalidar.
type Clasificador struct {
	pagina browser.Pagina
	log    zerolog.Logger

	cacheEstado Estado
	cacheDesde  time.Time
	ahora       func() time.Time
}

// NuevoClasificador arma el clasificador sobre la página de la sesión.
func NuevoClasificador(p browser.Pagina, log zerolog.Logger) *Clasificador {
	return &Clasificador{
		pagina: p,
		log:    log.With().Str("componente", "estado").Logger(),
		ahora:  time.Now,
	}
}

// Invalidar borra la caché. Se llama después de cada click de navegación o
// Navegar explícito.
func (c *Clasificador) Invalidar() {
	c.cacheEstado = ""
	c.cacheDesde = time.Time{}
}

// Detectar devuelve la pantalla actual, de la caché si tiene menos de cinco
// segundos, si no sondeando URL y centinelas.
func (c *Clasificador) Detectar() Estado {
	if c.cacheEstado != "" && c.ahora().Sub(c.cacheDesde) <= vidaCache {
		return c.cacheEstado
	}

	e := c.clasificar()
	c.cacheEstado = e
	c.cacheDesde = c.ahora()
	c.log.Debug().Str("estado", string(e)).Str("url", c.pagina.URL()).Msg("pantalla clasificada")
	return e
}

func (c *Clasificador) clasificar() Estado {
	url := c.pagina.URL()

	switch {
	case strings.Contains(url, "#/login"):
		// El fragmento #/login también queda colgado tras iniciar sesión en
		// algunas versiones; desempatar con centinelas, en este orden.
		if c.hay(centinelaBotonLogin) {
			return Login
		}
		if c.hay(centinelaSelectorUnidad) {
			return SeleccionUnidad
		}
		if c.hay(centinelaMenu) {
			return Home
		}
		return Login
	case strings.Contains(url, "#/actualizaciones"):
		return Home
	case strings.Contains(url, "#/busqueda"):
		// Confirmar con el input de RUT, pero reportar BUSQUEDA igual si el
		// sondeo corto no lo pilla: la URL manda.
		c.hay(centinelaInputRut)
		return Busqueda
	case strings.Contains(url, "#/cartola"):
		return Cartola
	}

	if c.hay(centinelaMenu) {
		return Home
	}
	return Desconocido
}

func (c *Clasificador) hay(candidatos []selector.Localizador) bool {
	return selector.Buscar(c.pagina, candidatos, selector.Presente, 600*time.Millisecond) != nil
}
