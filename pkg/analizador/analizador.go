// Package analizador orquesta la corrida completa: por cada paciente de la
// nómina busca en el portal, decide con la mini-tabla si vale la pena abrir
// la cartola, y produce una fila de resultado por misión. La falla de un
// paciente nunca tumba la corrida.
package analizador

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/cartola"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/estado"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/minitabla"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/mision"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/navegacion"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/normalizador"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/reintento"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

// SinCaso es el texto de las filas donde ninguna palabra clave cruzó.
const SinCaso = "Sin caso"

// Decision es lo que el operador elige cuando se agotaron los reintentos
// automáticos de un paciente.
type Decision int

const (
	Reintentar Decision = iota
	Saltar
	Abortar
)

// Decididor resuelve qué hacer con un paciente agotado. En modo lote es nil
// y el paciente se marca con problema y se sigue.
type Decididor func(paciente models.Paciente, err error) Decision

// Localizadores de la pantalla de búsqueda.
var (
	locInputRut = []selector.Localizador{
		selector.Css("input#rutBusqueda"),
		selector.Css("input[formcontrolname='run']"),
		selector.Xp("//input[contains(@placeholder, 'RUT') or contains(@placeholder, 'RUN')]"),
	}
	locBotonBuscar = []selector.Localizador{
		selector.Css("button#btnBuscar"),
		selector.Xp("//button[contains(., 'Buscar')]"),
		selector.Css("form button[type='submit']"),
	}
)

// Resultado es la salida de una corrida, posiblemente parcial si se pidió
// detener.
type Resultado struct {
	Filas     []models.FilaResultado
	Problemas []models.Problema
}

// Analizador corre las misiones configuradas sobre la nómina, un paciente y
// una misión a la vez, estrictamente en orden. La sesión del navegador es
// una sola y es de quien esté a mitad de operación.
type Analizador struct {
	ses      *browser.Sesion
	maq      *navegacion.Maquina
	misiones []mision.Mision
	inter    *Interruptores
	decidir  Decididor
	dis      *reintento.Disyuntor
	log      zerolog.Logger

	techoSpinner time.Duration
}

// Opciones arma un analizador.
type Opciones struct {
	Sesion        *browser.Sesion
	Maquina       *navegacion.Maquina
	Misiones      []mision.Mision
	Interruptores *Interruptores
	Decidir       Decididor
	Disyuntor     *reintento.Disyuntor
	TechoSpinner  time.Duration
}

// Nuevo crea el analizador.
func Nuevo(opc Opciones, log zerolog.Logger) *Analizador {
	if opc.Interruptores == nil {
		opc.Interruptores = NuevosInterruptores()
	}
	if opc.TechoSpinner == 0 {
		opc.TechoSpinner = 25 * time.Second
	}
	return &Analizador{
		ses:          opc.Sesion,
		maq:          opc.Maquina,
		misiones:     opc.Misiones,
		inter:        opc.Interruptores,
		decidir:      opc.Decidir,
		dis:          opc.Disyuntor,
		log:          log.With().Str("componente", "analizador").Logger(),
		techoSpinner: opc.TechoSpinner,
	}
}

// Interruptores expone las banderas para el dueño de la corrida.
func (a *Analizador) Interruptores() *Interruptores {
	return a.inter
}

// Procesar corre la nómina completa en orden y devuelve los resultados,
// parciales si se pidió detener o si la sesión murió del todo.
func (a *Analizador) Procesar(pacientes []models.Paciente) (*Resultado, error) {
	res := &Resultado{}

	for idx, paciente := range pacientes {
		if a.inter.DebeDetener() {
			a.log.Warn().Int("procesados", idx).Msg("detención pedida, cerrando la corrida")
			return res, nil
		}
		a.inter.esperarSiEnPausa()

		log := a.log.With().Str("rut", paciente.Rut).Str("nombre", paciente.Nombre).Logger()
		log.Info().Int("posicion", idx+1).Int("total", len(pacientes)).Msg("procesando paciente")

		filas, err := a.procesarPacienteConReintentos(paciente, log)
		if err == nil {
			res.Filas = append(res.Filas, filas...)
			continue
		}

		if errors.Is(err, reintento.ErrCircuitoAbierto) {
			res.Problemas = append(res.Problemas, problema(paciente, err))
			return res, fmt.Errorf("sesión irrecuperable: %w", err)
		}

		switch a.decidirDestino(paciente, err) {
		case Reintentar:
			filas, err = a.procesarPacienteConReintentos(paciente, log)
			if err == nil {
				res.Filas = append(res.Filas, filas...)
				continue
			}
			res.Problemas = append(res.Problemas, problema(paciente, err))
		case Saltar:
			log.Warn().Err(err).Msg("paciente saltado por el operador")
			res.Problemas = append(res.Problemas, problema(paciente, err))
		case Abortar:
			log.Error().Err(err).Msg("corrida abortada por el operador")
			res.Problemas = append(res.Problemas, problema(paciente, err))
			return res, nil
		}
	}

	return res, nil
}

func (a *Analizador) decidirDestino(paciente models.Paciente, err error) Decision {
	if a.decidir == nil {
		return Saltar
	}
	return a.decidir(paciente, err)
}

func problema(p models.Paciente, err error) models.Problema {
	return models.Problema{
		Rut:    p.Rut,
		Nombre: p.Nombre,
		Motivo: err.Error(),
		Cuando: time.Now(),
	}
}

// procesarPacienteConReintentos envuelve el ciclo del paciente con la
// política de reintento y atrapa cualquier pánico de las capas de abajo:
// un error inesperado también es "marcar y seguir", nunca tumbar la corrida.
func (a *Analizador) procesarPacienteConReintentos(paciente models.Paciente, log zerolog.Logger) (filas []models.FilaResultado, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panico", r).Msg("pánico procesando al paciente")
			err = fmt.Errorf("pánico procesando a %s: %v", paciente.Rut, r)
		}
	}()

	err = reintento.Ejecutar(log, reintento.PoliticaPorDefecto(), a.dis, "procesar paciente",
		func() error {
			var errPaso error
			filas, errPaso = a.procesarPaciente(paciente, log)
			return errPaso
		},
		func(err error) bool {
			if errors.Is(err, browser.ErrSpinnerPegado) {
				// Más grave que un timeout puntual: la página entera está
				// colgada. Igual se reintenta, con la espera que ya trae la
				// escala, pero queda registrado aparte.
				log.Error().Msg("velo de carga pegado, reintento con espera larga")
				return true
			}
			return browser.EsTransitorio(err) || errors.Is(err, navegacion.ErrLoginFallido)
		})
	return filas, err
}

// procesarPaciente es el ciclo de un paciente: buscar, mirar la
// mini-tabla, y solo si alguna palabra clave cruza, abrir la cartola.
func (a *Analizador) procesarPaciente(paciente models.Paciente, log zerolog.Logger) ([]models.FilaResultado, error) {
	if err := a.maq.AsegurarEstado(estado.Busqueda); err != nil {
		return nil, err
	}
	if err := a.buscarPaciente(paciente); err != nil {
		return nil, err
	}

	filasMini := minitabla.Leer(a.ses, log, minitabla.Opciones{
		FiltrarEventoSinCaso: a.algunaMisionFiltraSinCaso(),
	})

	if !a.algunaPalabraCruza(filasMini) {
		// Abrir la cartola es lo más caro de toda la pasada; si ninguna
		// misión tiene con qué cruzar, ni se intenta.
		log.Info().Int("casos", len(filasMini)).Msg("sin cruce de palabras clave, se omite la cartola")
		return a.filasSinCaso(paciente), nil
	}

	if err := a.maq.AsegurarEstado(estado.Cartola); err != nil {
		return nil, err
	}
	cartola.ActivarFiltroGES(a.ses, log, a.techoSpinner)
	listaCasos := cartola.LeerListaCasos(a.ses, log)

	var filas []models.FilaResultado
	for _, m := range a.misiones {
		if a.inter.DebeDetener() {
			// El paciente en vuelo se termina completo; la detención corta
			// en el tope del ciclo de pacientes.
			a.log.Debug().Msg("detención pedida, se completan las misiones del paciente en vuelo")
		}
		a.inter.esperarSiEnPausa()
		filas = append(filas, a.analizarMision(paciente, m, listaCasos, log))
	}
	return filas, nil
}

// buscarPaciente escribe el RUT en el buscador y dispara la búsqueda.
func (a *Analizador) buscarPaciente(paciente models.Paciente) error {
	input := selector.Buscar(a.ses.Pagina, locInputRut, selector.Visible, 5*time.Second)
	if input == nil {
		return fmt.Errorf("input de RUT del buscador: %w", browser.ErrElementoNoEncontrado)
	}
	if err := input.SeleccionarTodo(); err == nil {
		if err := input.Escribir(normalizador.LimpiarRut(paciente.Rut)); err != nil {
			return fmt.Errorf("error escribiendo el RUT: %w", err)
		}
	} else if err := input.Escribir(normalizador.LimpiarRut(paciente.Rut)); err != nil {
		return fmt.Errorf("error escribiendo el RUT: %w", err)
	}

	boton := selector.Buscar(a.ses.Pagina, locBotonBuscar, selector.Clickeable, 3*time.Second)
	if boton == nil {
		return fmt.Errorf("botón de búsqueda: %w", browser.ErrElementoNoEncontrado)
	}
	a.maq.Clasificador().Invalidar()
	return selector.ClickYEsperar(a.ses, boton, a.techoSpinner)
}

func (a *Analizador) algunaMisionFiltraSinCaso() bool {
	for _, m := range a.misiones {
		if m.FiltrarSinCaso {
			return true
		}
	}
	return false
}

func (a *Analizador) algunaPalabraCruza(filas []models.FilaMiniTabla) bool {
	for _, fila := range filas {
		problema := normalizador.NormalizarTexto(fila.Problema)
		for _, m := range a.misiones {
			for _, palabra := range m.Palabras {
				if palabra == "" {
					continue
				}
				if contienePalabra(problema, palabra) {
					return true
				}
			}
		}
	}
	return false
}

func contienePalabra(problemaNormalizado, palabra string) bool {
	clave := normalizador.NormalizarTexto(palabra)
	return problemaNormalizado != "" && clave != "" &&
		strings.Contains(problemaNormalizado, clave)
}

// filasSinCaso emite la fila "Sin caso" para cada misión.
func (a *Analizador) filasSinCaso(paciente models.Paciente) []models.FilaResultado {
	filas := make([]models.FilaResultado, 0, len(a.misiones))
	for _, m := range a.misiones {
		filas = append(filas, models.FilaResultado{
			Rut:             paciente.Rut,
			Nombre:          paciente.Nombre,
			FechaReferencia: paciente.FechaReferencia,
			Mision:          m.Nombre,
			CasoEncontrado:  SinCaso,
			Seguimiento:     "Sin Caso",
			IPD:             "Sin registros",
			OA:              "Sin registros",
			APS:             "Sin registros",
			SIC:             "Sin registros",
		})
	}
	return filas
}
