package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// sondaPorDefecto es lo que espera cada búsqueda individual antes de
// declarar que el elemento no está. Los bucles de espera largos viven en
// las capas de arriba, no acá.
const sondaPorDefecto = 400 * time.Millisecond

// Conectar se adhiere a un Chrome ya corriendo con el puerto de depuración
// abierto en 127.0.0.1 y devuelve la primera pestaña como Pagina.
func Conectar(puerto int) (*rod.Browser, Pagina, error) {
	u, err := launcher.ResolveURL(fmt.Sprintf("127.0.0.1:%d", puerto))
	if err != nil {
		return nil, nil, fmt.Errorf("error resolviendo el puerto de depuración %d: %w", puerto, err)
	}

	navegador := rod.New().ControlURL(u)
	if err := navegador.Connect(); err != nil {
		return nil, nil, fmt.Errorf("error conectando al navegador: %w", err)
	}

	paginas, err := navegador.Pages()
	if err != nil {
		return nil, nil, fmt.Errorf("error listando pestañas: %w", err)
	}

	var pag *rod.Page
	if len(paginas) > 0 {
		pag = paginas[0]
	} else {
		pag, err = navegador.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, nil, fmt.Errorf("error abriendo pestaña: %w", err)
		}
	}

	return navegador, NuevaPaginaRod(pag), nil
}

// NuevaPaginaRod envuelve una página rod en la interfaz Pagina.
func NuevaPaginaRod(p *rod.Page) Pagina {
	return &paginaRod{pag: p, sonda: sondaPorDefecto}
}

type paginaRod struct {
	pag   *rod.Page
	sonda time.Duration
}

func (p *paginaRod) Navegar(url string) error {
	if err := p.pag.Navigate(url); err != nil {
		return fmt.Errorf("error navegando a %s: %w", url, err)
	}
	if err := p.pag.WaitLoad(); err != nil {
		return fmt.Errorf("error esperando la carga de %s: %w", url, err)
	}
	return nil
}

func (p *paginaRod) URL() string {
	info, err := p.pag.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *paginaRod) Elemento(css string) (Elemento, error) {
	el, err := p.pag.Timeout(p.sonda).Element(css)
	if err != nil {
		return nil, traducir(err)
	}
	return &elementoRod{el: el.CancelTimeout()}, nil
}

func (p *paginaRod) Elementos(css string) ([]Elemento, error) {
	els, err := p.pag.Elements(css)
	if err != nil {
		return nil, traducir(err)
	}
	return envolverTodos(els), nil
}

func (p *paginaRod) ElementoX(xpath string) (Elemento, error) {
	el, err := p.pag.Timeout(p.sonda).ElementX(xpath)
	if err != nil {
		return nil, traducir(err)
	}
	return &elementoRod{el: el.CancelTimeout()}, nil
}

func (p *paginaRod) ElementosX(xpath string) ([]Elemento, error) {
	els, err := p.pag.ElementsX(xpath)
	if err != nil {
		return nil, traducir(err)
	}
	return envolverTodos(els), nil
}

func (p *paginaRod) Eval(js string) (string, error) {
	res, err := p.pag.Eval(js)
	if err != nil {
		return "", traducir(err)
	}
	return res.Value.Str(), nil
}

func (p *paginaRod) HTML() (string, error) {
	html, err := p.pag.HTML()
	if err != nil {
		return "", traducir(err)
	}
	return html, nil
}

type elementoRod struct {
	el *rod.Element
}

func (e *elementoRod) Texto() (string, error) {
	t, err := e.el.Text()
	if err != nil {
		return "", traducir(err)
	}
	return strings.TrimSpace(t), nil
}

func (e *elementoRod) Visible() (bool, error) {
	v, err := e.el.Visible()
	if err != nil {
		return false, traducir(err)
	}
	return v, nil
}

func (e *elementoRod) ScrollIntoView() error {
	if err := e.el.ScrollIntoView(); err != nil {
		return traducir(err)
	}
	return nil
}

func (e *elementoRod) Click() error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return traducir(err)
	}
	return nil
}

func (e *elementoRod) ClickDirecto() error {
	if _, err := e.el.Eval(`() => this.click()`); err != nil {
		return traducir(err)
	}
	return nil
}

func (e *elementoRod) Escribir(texto string) error {
	if err := e.el.Input(texto); err != nil {
		return traducir(err)
	}
	return nil
}

func (e *elementoRod) SeleccionarTodo() error {
	if err := e.el.SelectAllText(); err != nil {
		return traducir(err)
	}
	return nil
}

func (e *elementoRod) Atributo(nombre string) string {
	v, err := e.el.Attribute(nombre)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (e *elementoRod) Elementos(css string) ([]Elemento, error) {
	els, err := e.el.Elements(css)
	if err != nil {
		return nil, traducir(err)
	}
	return envolverTodos(els), nil
}

func (e *elementoRod) ElementoX(xpath string) (Elemento, error) {
	el, err := e.el.Timeout(sondaPorDefecto).ElementX(xpath)
	if err != nil {
		return nil, traducir(err)
	}
	return &elementoRod{el: el.CancelTimeout()}, nil
}

func (e *elementoRod) HTML() (string, error) {
	html, err := e.el.HTML()
	if err != nil {
		return "", traducir(err)
	}
	return html, nil
}

func envolverTodos(els rod.Elements) []Elemento {
	salida := make([]Elemento, 0, len(els))
	for _, el := range els {
		salida = append(salida, &elementoRod{el: el})
	}
	return salida
}

// traducir mapea los errores del driver a los centinelas del motor. El
// driver no expone una taxonomía estable, así que se clasifica por tipo de
// contexto y por el texto del error.
func traducir(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTiempoAgotado, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cannot find element") || strings.Contains(msg, "element not found"):
		return fmt.Errorf("%w: %v", ErrElementoNoEncontrado, err)
	case strings.Contains(msg, "not interactable") || strings.Contains(msg, "invisible"):
		return fmt.Errorf("%w: %v", ErrNoInteractuable, err)
	case strings.Contains(msg, "covered") || strings.Contains(msg, "intercept"):
		return fmt.Errorf("%w: %v", ErrClickInterceptado, err)
	case strings.Contains(msg, "object id") || strings.Contains(msg, "node") && strings.Contains(msg, "detached"):
		return fmt.Errorf("%w: %v", ErrElementoObsoleto, err)
	}
	return err
}
