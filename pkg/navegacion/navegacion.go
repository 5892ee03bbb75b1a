// Package navegacion ejecuta las transiciones entre pantallas del portal.
// La consigna siempre es "asegurar el estado X", nunca "ir a X a ciegas":
// si ya estamos donde hay que estar, no se hace ni un click.
package navegacion

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/estado"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/reintento"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

var (
	// ErrTransicionNoImplementada corta fuerte: mejor fallar que adivinar
	// una secuencia de clicks sobre un portal frágil.
	ErrTransicionNoImplementada = errors.New("transición no implementada")

	// ErrLoginFallido indica que el re-login automático no dejó la sesión
	// autenticada; para el paciente en curso es fatal.
	ErrLoginFallido = errors.New("no se pudo iniciar sesión")
)

// Localizadores de la navegación. Listas ordenadas por versión del portal.
var (
	locBotonMenu = []selector.Localizador{
		selector.Css("button.boton-menu-lateral"),
		selector.Css("mat-toolbar button[aria-label='Menu']"),
		selector.Xp("//button[contains(@class, 'navbar-toggler')]"),
	}
	locSubmenuIngreso = []selector.Localizador{
		selector.Xp("//a[contains(., 'Ingreso y Consulta Paciente')]"),
		selector.Xp("//span[contains(., 'Ingreso y Consulta')]/ancestor::a[1]"),
	}
	locItemBusqueda = []selector.Localizador{
		selector.Xp("//a[contains(@href, '#/busqueda')]"),
		selector.Xp("//a[contains(., 'Búsqueda de Paciente')]"),
		selector.Xp("//a[contains(., 'Busqueda de Paciente')]"),
	}
	locLinkCartola = []selector.Localizador{
		selector.Xp("//a[contains(@href, '#/cartola')]"),
		selector.Xp("//a[contains(., 'Cartola')]"),
	}
	locInputRutLogin = []selector.Localizador{
		selector.Css("input#rutLogin"),
		selector.Css("input[formcontrolname='rut']"),
		selector.Css("input[name='username']"),
	}
	locInputClave = []selector.Localizador{
		selector.Css("input#claveLogin"),
		selector.Css("input[type='password']"),
	}
	locBotonIngresar = []selector.Localizador{
		selector.Css("button#btnIngresar"),
		selector.Xp("//button[contains(., 'Ingresar')]"),
	}
	locListaUnidades = []selector.Localizador{
		selector.Css("div.seleccion-unidad li"),
		selector.Xp("//li[contains(@class, 'unidad')]"),
	}
)

// Credenciales del portal más la unidad/establecimiento a seleccionar.
type Credenciales struct {
	Rut    string
	Clave  string
	Unidad string
}

// Opciones de la máquina de navegación.
type Opciones struct {
	URLPortal    string
	TechoSpinner time.Duration
	PlazoMenu    time.Duration
}

// Maquina es la dueña de la sesión durante las transiciones. Reintenta cada
// consigna hasta tres veces y re-autentica sola si la sesión expiró.
type Maquina struct {
	ses  *browser.Sesion
	clas *estado.Clasificador
	cred Credenciales
	opc  Opciones
	dis  *reintento.Disyuntor
	log  zerolog.Logger
}

// Nueva arma la máquina de navegación.
func Nueva(ses *browser.Sesion, clas *estado.Clasificador, cred Credenciales, opc Opciones, dis *reintento.Disyuntor, log zerolog.Logger) *Maquina {
	if opc.TechoSpinner == 0 {
		opc.TechoSpinner = 25 * time.Second
	}
	if opc.PlazoMenu == 0 {
		opc.PlazoMenu = 6 * time.Second
	}
	return &Maquina{
		ses:  ses,
		clas: clas,
		cred: cred,
		opc:  opc,
		dis:  dis,
		log:  log.With().Str("componente", "navegacion").Logger(),
	}
}

// Clasificador expone el clasificador para que el analizador pueda
// re-chequear la pantalla a mitad de operación.
func (m *Maquina) Clasificador() *estado.Clasificador {
	return m.clas
}

// AsegurarEstado lleva la pestaña al estado pedido, con reintentos. Si ya
// está ahí, es un no-op sin clicks.
func (m *Maquina) AsegurarEstado(deseado estado.Estado) error {
	return reintento.Ejecutar(m.log, reintento.PoliticaPorDefecto(), m.dis,
		fmt.Sprintf("asegurar %s", deseado),
		func() error { return m.asegurar(deseado) },
		func(err error) bool {
			return browser.EsTransitorio(err) || errors.Is(err, ErrLoginFallido)
		})
}

func (m *Maquina) asegurar(deseado estado.Estado) error {
	actual := m.clas.Detectar()
	if actual == deseado {
		return nil
	}

	switch deseado {
	case estado.Busqueda:
		if actual.Autenticado() {
			return m.irABusquedaPorMenu()
		}
		if err := m.iniciarSesion(); err != nil {
			return err
		}
		if m.clas.Detectar() == estado.Busqueda {
			return nil
		}
		return m.irABusquedaPorMenu()

	case estado.Home:
		if !actual.Autenticado() {
			if err := m.iniciarSesion(); err != nil {
				return err
			}
		}
		if m.clas.Detectar().Autenticado() {
			return nil
		}
		return fmt.Errorf("tras el login la pantalla quedó en %s: %w", m.clas.Detectar(), ErrLoginFallido)

	case estado.Cartola:
		if !actual.Autenticado() {
			if err := m.iniciarSesion(); err != nil {
				return err
			}
		}
		return m.irACartola()
	}

	return fmt.Errorf("de %s a %s: %w", actual, deseado, ErrTransicionNoImplementada)
}

// irABusquedaPorMenu abre el menú lateral si está colapsado, despliega el
// submenú de ingreso y consulta, y hace click en el ítem de búsqueda.
func (m *Maquina) irABusquedaPorMenu() error {
	m.abrirMenuSiColapsado()

	if sub := selector.Buscar(m.ses.Pagina, locSubmenuIngreso, selector.Visible, m.opc.PlazoMenu); sub != nil {
		if item := selector.Buscar(m.ses.Pagina, locItemBusqueda, selector.Visible, 800*time.Millisecond); item == nil {
			// Submenú colapsado: expandir primero.
			if err := selector.Click(sub); err != nil {
				return fmt.Errorf("error expandiendo el submenú de ingreso: %w", err)
			}
		}
	}

	item := selector.Buscar(m.ses.Pagina, locItemBusqueda, selector.Clickeable, m.opc.PlazoMenu)
	if item == nil {
		return fmt.Errorf("ítem de búsqueda en el menú: %w", browser.ErrElementoNoEncontrado)
	}
	m.clas.Invalidar()
	if err := selector.ClickYEsperar(m.ses, item, m.opc.TechoSpinner); err != nil {
		return err
	}

	if e := m.clas.Detectar(); e != estado.Busqueda {
		return fmt.Errorf("tras el menú la pantalla quedó en %s: %w", e, browser.ErrTiempoAgotado)
	}
	return nil
}

func (m *Maquina) irACartola() error {
	link := selector.Buscar(m.ses.Pagina, locLinkCartola, selector.Clickeable, m.opc.PlazoMenu)
	if link == nil {
		// Camino de respaldo: el link vive dentro del menú colapsado.
		m.abrirMenuSiColapsado()
		link = selector.Buscar(m.ses.Pagina, locLinkCartola, selector.Clickeable, m.opc.PlazoMenu)
	}
	if link == nil {
		return fmt.Errorf("link de cartola: %w", browser.ErrElementoNoEncontrado)
	}

	m.clas.Invalidar()
	if err := selector.ClickYEsperar(m.ses, link, m.opc.TechoSpinner); err != nil {
		return err
	}
	if e := m.clas.Detectar(); e != estado.Cartola {
		return fmt.Errorf("tras el click la pantalla quedó en %s: %w", e, browser.ErrTiempoAgotado)
	}
	return nil
}

func (m *Maquina) abrirMenuSiColapsado() {
	// Si el submenú ya se ve, el menú está abierto.
	if selector.Buscar(m.ses.Pagina, locSubmenuIngreso, selector.Visible, 500*time.Millisecond) != nil {
		return
	}
	if boton := selector.Buscar(m.ses.Pagina, locBotonMenu, selector.Clickeable, 1500*time.Millisecond); boton != nil {
		if err := selector.Click(boton); err != nil {
			m.log.Warn().Err(err).Msg("no se pudo abrir el menú lateral")
		}
		time.Sleep(300 * time.Millisecond)
	}
}

// iniciarSesion corre el login completo: formulario, clave, y selección de
// unidad si el portal la pide.
func (m *Maquina) iniciarSesion() error {
	m.log.Info().Msg("sesión expirada o sin iniciar, corriendo login")
	m.clas.Invalidar()

	if err := m.ses.Pagina.Navegar(m.opc.URLPortal); err != nil {
		return fmt.Errorf("error abriendo el portal: %w", err)
	}
	if err := m.ses.EsperarCargaCompleta(m.opc.TechoSpinner); err != nil {
		return err
	}

	inputRut := selector.Buscar(m.ses.Pagina, locInputRutLogin, selector.Visible, m.opc.PlazoMenu)
	if inputRut == nil {
		// Sin formulario a la vista: puede que la sesión siga viva.
		if m.clas.Detectar().Autenticado() {
			return nil
		}
		return fmt.Errorf("formulario de login: %w", browser.ErrElementoNoEncontrado)
	}

	if err := inputRut.SeleccionarTodo(); err == nil {
		_ = inputRut.Escribir(m.cred.Rut)
	} else if err := inputRut.Escribir(m.cred.Rut); err != nil {
		return fmt.Errorf("error escribiendo el RUT: %w", err)
	}

	inputClave := selector.Buscar(m.ses.Pagina, locInputClave, selector.Visible, 2*time.Second)
	if inputClave == nil {
		return fmt.Errorf("campo de clave: %w", browser.ErrElementoNoEncontrado)
	}
	if err := inputClave.Escribir(m.cred.Clave); err != nil {
		return fmt.Errorf("error escribiendo la clave: %w", err)
	}

	boton := selector.Buscar(m.ses.Pagina, locBotonIngresar, selector.Clickeable, 2*time.Second)
	if boton == nil {
		return fmt.Errorf("botón de ingreso: %w", browser.ErrElementoNoEncontrado)
	}
	m.clas.Invalidar()
	if err := selector.ClickYEsperar(m.ses, boton, m.opc.TechoSpinner); err != nil {
		return err
	}

	if m.clas.Detectar() == estado.SeleccionUnidad {
		if err := m.seleccionarUnidad(); err != nil {
			return err
		}
	}

	if !m.clas.Detectar().Autenticado() {
		return fmt.Errorf("la pantalla quedó en %s: %w", m.clas.Detectar(), ErrLoginFallido)
	}
	if m.dis != nil {
		m.dis.Reiniciar()
	}
	m.log.Info().Msg("login completado")
	return nil
}

func (m *Maquina) seleccionarUnidad() error {
	unidades := selector.Buscar(m.ses.Pagina, locListaUnidades, selector.Visible, m.opc.PlazoMenu)
	if unidades == nil {
		return fmt.Errorf("lista de unidades: %w", browser.ErrElementoNoEncontrado)
	}

	objetivo := unidades
	if m.cred.Unidad != "" {
		for _, loc := range locListaUnidades {
			if loc.Tipo != selector.CSS {
				continue
			}
			els, err := m.ses.Pagina.Elementos(loc.Valor)
			if err != nil {
				continue
			}
			for _, el := range els {
				if texto, err := el.Texto(); err == nil && contiene(texto, m.cred.Unidad) {
					objetivo = el
					break
				}
			}
		}
	}

	m.clas.Invalidar()
	return selector.ClickYEsperar(m.ses, objetivo, m.opc.TechoSpinner)
}

func contiene(texto, fragmento string) bool {
	return fragmento != "" && normalizador.ContieneNormalizado(texto, fragmento)
}
