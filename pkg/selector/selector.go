// Package selector resuelve elementos a partir de listas ordenadas de
// localizadores candidatos. El markup del portal cambia entre despliegues y
// versiones; sumar un candidato nuevo es agregar un dato a la lista, no
// tocar el flujo.
package selector

import (
	"time"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
)

// Tipo distingue cómo se interpreta el valor del localizador.
type Tipo int

const (
	CSS Tipo = iota
	XPath
)

// Localizador es un candidato de búsqueda con una nota para los logs.
type Localizador struct {
	Tipo  Tipo
	Valor string
	Nota  string
}

// Css y Xp abrevian la construcción de candidatos.
func Css(valor string) Localizador { return Localizador{Tipo: CSS, Valor: valor} }
func Xp(valor string) Localizador  { return Localizador{Tipo: XPath, Valor: valor} }

// Modo es el predicado que debe cumplir el elemento encontrado.
type Modo int

const (
	Presente Modo = iota
	Visible
	Clickeable
)

const intervaloRonda = 150 * time.Millisecond

// Buscar prueba los candidatos en orden, en rondas, hasta que uno cumpla el
// modo o se agote el plazo. Devuelve nil si ninguno aparece: que eso sea
// fatal o no lo decide quien llama.
func Buscar(p browser.Pagina, candidatos []Localizador, modo Modo, plazo time.Duration) browser.Elemento {
	limite := time.Now().Add(plazo)
	for {
		for _, loc := range candidatos {
			el := resolver(p, loc)
			if el == nil {
				continue
			}
			if cumple(el, modo) {
				return el
			}
		}
		if time.Now().After(limite) {
			return nil
		}
		time.Sleep(intervaloRonda)
	}
}

// BuscarEn es Buscar pero con raíz en un elemento ya resuelto. Solo admite
// candidatos XPath relativos, que es lo que usan los lectores de secciones.
func BuscarEn(raiz browser.Elemento, rutas []string) browser.Elemento {
	for _, ruta := range rutas {
		el, err := raiz.ElementoX(ruta)
		if err != nil || el == nil {
			continue
		}
		return el
	}
	return nil
}

func resolver(p browser.Pagina, loc Localizador) browser.Elemento {
	var (
		el  browser.Elemento
		err error
	)
	if loc.Tipo == XPath {
		el, err = p.ElementoX(loc.Valor)
	} else {
		el, err = p.Elemento(loc.Valor)
	}
	if err != nil {
		return nil
	}
	return el
}

func cumple(el browser.Elemento, modo Modo) bool {
	if modo == Presente {
		return true
	}
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	// Para Clickeable alcanza con visible: la intercepción real se maneja
	// en Click con el despacho directo de respaldo.
	return true
}

// Click hace scroll al elemento y prueba el click nativo; si cae
// interceptado, obsoleto o no interactuable, despacha el click a nivel DOM.
func Click(el browser.Elemento) error {
	if err := el.ScrollIntoView(); err == nil {
		time.Sleep(80 * time.Millisecond)
	}
	err := el.Click()
	if err == nil {
		return nil
	}
	if browser.EsTransitorio(err) {
		if errDirecto := el.ClickDirecto(); errDirecto == nil {
			return nil
		}
	}
	return err
}

// ClickYEsperar agrega la espera del velo de carga después del click, para
// los clicks que navegan.
func ClickYEsperar(ses *browser.Sesion, el browser.Elemento, techoSpinner time.Duration) error {
	if err := Click(el); err != nil {
		return err
	}
	return ses.EsperarCargaCompleta(techoSpinner)
}
