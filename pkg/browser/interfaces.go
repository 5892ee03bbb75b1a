// Package browser envuelve la sesión viva de Chrome detrás de interfaces
// chicas. El resto del motor nunca toca rod directamente: así los lectores
// se prueban con páginas falsas y la sesión real queda en un solo lugar.
package browser

import "errors"

// Errores con los que el resto del motor decide si reintentar o abortar.
var (
	ErrElementoNoEncontrado = errors.New("elemento no encontrado")
	ErrElementoObsoleto     = errors.New("referencia al elemento quedó obsoleta")
	ErrClickInterceptado    = errors.New("otro elemento interceptó el click")
	ErrNoInteractuable      = errors.New("elemento no interactuable")
	ErrTiempoAgotado        = errors.New("tiempo de espera agotado")

	// ErrSpinnerPegado es más grave que un timeout común: el indicador de
	// carga nunca desapareció, o sea la página entera está colgada y no un
	// elemento puntual.
	ErrSpinnerPegado = errors.New("indicador de carga nunca desapareció")
)

// EsTransitorio informa si el error amerita reintento automático.
func EsTransitorio(err error) bool {
	return errors.Is(err, ErrElementoNoEncontrado) ||
		errors.Is(err, ErrElementoObsoleto) ||
		errors.Is(err, ErrClickInterceptado) ||
		errors.Is(err, ErrNoInteractuable) ||
		errors.Is(err, ErrTiempoAgotado)
}

// Elemento es la superficie mínima que el motor necesita de un nodo del DOM.
// Ninguna referencia sobrevive a una navegación: el portal re-renderiza el
// DOM completo en casi todas las transiciones.
type Elemento interface {
	Texto() (string, error)
	Visible() (bool, error)
	ScrollIntoView() error
	// Click es el click nativo del driver.
	Click() error
	// ClickDirecto despacha el click a nivel DOM; es el plan B cuando el
	// nativo cae interceptado u obsoleto.
	ClickDirecto() error
	Escribir(texto string) error
	SeleccionarTodo() error
	Atributo(nombre string) string
	Elementos(css string) ([]Elemento, error)
	ElementoX(xpath string) (Elemento, error)
	HTML() (string, error)
}

// Pagina es la superficie mínima de la pestaña del portal: navegar, buscar
// elementos, ejecutar script y leer la URL actual. Las búsquedas individuales
// esperan un sondeo corto; las plurales devuelven lo que haya en el momento.
type Pagina interface {
	Navegar(url string) error
	URL() string
	Elemento(css string) (Elemento, error)
	Elementos(css string) ([]Elemento, error)
	ElementoX(xpath string) (Elemento, error)
	ElementosX(xpath string) ([]Elemento, error)
	// Eval ejecuta una función JS sin argumentos y devuelve su resultado
	// como string (los scripts del motor devuelven JSON.stringify).
	Eval(js string) (string, error)
	HTML() (string, error)
}
