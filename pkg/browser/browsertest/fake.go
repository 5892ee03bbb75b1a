// Package browsertest trae implementaciones falsas de browser.Pagina y
// browser.Elemento para las pruebas de los lectores y la navegación, sin
// Chrome de por medio.
package browsertest

import (
	"strings"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
)

// Elemento es un nodo falso. Los campos se setean directo en la prueba.
type Elemento struct {
	TextoValor string
	Oculto     bool
	Atributos  map[string]string
	HTMLValor  string

	// Hijos mapea selectores CSS relativos a nodos; HijosX hace lo mismo
	// con XPath relativos.
	Hijos  map[string][]browser.Elemento
	HijosX map[string]browser.Elemento

	// AlClick corre tras cada click exitoso; sirve para simular la
	// transición de pantalla que el click real provocaría.
	AlClick func()

	ErrClick error
	ErrTexto error
	ErrHijos error
	ErrVer   error

	Clicks         int
	ClicksDirectos int
	Escrito        []string
	Selecciones    int
}

var _ browser.Elemento = (*Elemento)(nil)

func (e *Elemento) Texto() (string, error) {
	if e.ErrTexto != nil {
		return "", e.ErrTexto
	}
	return e.TextoValor, nil
}

func (e *Elemento) Visible() (bool, error) {
	if e.ErrVer != nil {
		return false, e.ErrVer
	}
	return !e.Oculto, nil
}

func (e *Elemento) ScrollIntoView() error { return nil }

func (e *Elemento) Click() error {
	e.Clicks++
	if e.ErrClick != nil {
		return e.ErrClick
	}
	if e.AlClick != nil {
		e.AlClick()
	}
	return nil
}

func (e *Elemento) ClickDirecto() error {
	e.ClicksDirectos++
	if e.AlClick != nil {
		e.AlClick()
	}
	return nil
}

func (e *Elemento) Escribir(texto string) error {
	e.Escrito = append(e.Escrito, texto)
	return nil
}

func (e *Elemento) SeleccionarTodo() error {
	e.Selecciones++
	return nil
}

func (e *Elemento) Atributo(nombre string) string {
	return e.Atributos[nombre]
}

func (e *Elemento) Elementos(css string) ([]browser.Elemento, error) {
	if e.ErrHijos != nil {
		return nil, e.ErrHijos
	}
	return e.Hijos[css], nil
}

func (e *Elemento) ElementoX(xpath string) (browser.Elemento, error) {
	if el, ok := e.HijosX[xpath]; ok {
		return el, nil
	}
	return nil, browser.ErrElementoNoEncontrado
}

func (e *Elemento) HTML() (string, error) { return e.HTMLValor, nil }

// Pagina es la pestaña falsa. Los selectores se registran literales: la
// prueba registra exactamente los que el código de producción va a pedir.
type Pagina struct {
	URLActual string
	HTMLValor string

	// Nodos mapea un selector (CSS o XPath, literal) a su primer elemento.
	// Listas responde las búsquedas plurales.
	Nodos  map[string]browser.Elemento
	Listas map[string][]browser.Elemento

	// EvalFunc responde Eval; sin setear, Eval falla.
	EvalFunc func(js string) (string, error)

	Navegaciones []string
	ErrNavegar   error
}

var _ browser.Pagina = (*Pagina)(nil)

// NuevaPagina arma una página falsa vacía en la URL dada.
func NuevaPagina(url string) *Pagina {
	return &Pagina{
		URLActual: url,
		Nodos:     make(map[string]browser.Elemento),
		Listas:    make(map[string][]browser.Elemento),
	}
}

// Registrar asocia un selector literal a un elemento.
func (p *Pagina) Registrar(sel string, el browser.Elemento) {
	p.Nodos[sel] = el
}

func (p *Pagina) Navegar(url string) error {
	if p.ErrNavegar != nil {
		return p.ErrNavegar
	}
	p.Navegaciones = append(p.Navegaciones, url)
	p.URLActual = url
	return nil
}

func (p *Pagina) URL() string { return p.URLActual }

func (p *Pagina) Elemento(css string) (browser.Elemento, error) {
	return p.buscar(css)
}

func (p *Pagina) Elementos(css string) ([]browser.Elemento, error) {
	if lista, ok := p.Listas[css]; ok {
		return lista, nil
	}
	if el, ok := p.Nodos[css]; ok {
		return []browser.Elemento{el}, nil
	}
	return nil, nil
}

func (p *Pagina) ElementoX(xpath string) (browser.Elemento, error) {
	return p.buscar(xpath)
}

func (p *Pagina) ElementosX(xpath string) ([]browser.Elemento, error) {
	return p.Elementos(xpath)
}

func (p *Pagina) Eval(js string) (string, error) {
	if p.EvalFunc != nil {
		return p.EvalFunc(js)
	}
	return "", browser.ErrTiempoAgotado
}

func (p *Pagina) HTML() (string, error) { return p.HTMLValor, nil }

func (p *Pagina) buscar(sel string) (browser.Elemento, error) {
	if el, ok := p.Nodos[sel]; ok {
		return el, nil
	}
	if lista, ok := p.Listas[sel]; ok && len(lista) > 0 {
		return lista[0], nil
	}
	return nil, browser.ErrElementoNoEncontrado
}

// Tabla arma un tbody falso con una fila por cada tira de celdas. El texto
// de la fila es la concatenación de sus celdas, como lo reporta el DOM real.
func Tabla(filas [][]string) *Elemento {
	trs := make([]browser.Elemento, 0, len(filas))
	for _, fila := range filas {
		tds := make([]browser.Elemento, 0, len(fila))
		for _, celda := range fila {
			tds = append(tds, &Elemento{TextoValor: celda})
		}
		trs = append(trs, &Elemento{
			TextoValor: strings.Join(fila, " "),
			Hijos:      map[string][]browser.Elemento{"td": tds},
		})
	}
	return &Elemento{Hijos: map[string][]browser.Elemento{"tr": trs}}
}
