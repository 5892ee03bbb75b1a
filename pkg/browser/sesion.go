package browser

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Selectores conocidos del velo de carga del portal. Cambian entre
// despliegues, por eso es una lista y no un selector fijo.
var selectoresSpinner = []string{
	"div.overlay-cargando",
	"ngx-spinner div.ngx-spinner-overlay",
	"div.spinner-border",
	"#imgCargando",
	"div.loading",
}

const (
	sondeoAparicion  = 800 * time.Millisecond
	intervaloSondeo  = 120 * time.Millisecond
	intervaloEspera  = 250 * time.Millisecond
	reposoSinSpinner = 250 * time.Millisecond
)

// Sesion es la dueña de la pestaña del portal durante una corrida. Los
// lectores la piden prestada por operación; nadie guarda referencias a
// elementos entre navegaciones.
type Sesion struct {
	Pagina Pagina

	log       zerolog.Logger
	modoLento bool
}

// NuevaSesion arma la sesión sobre una página ya conectada.
func NuevaSesion(p Pagina, log zerolog.Logger) *Sesion {
	return &Sesion{
		Pagina: p,
		log:    log.With().Str("componente", "browser").Logger(),
	}
}

// ActivarModoLento duplica el techo del spinner por el resto del paciente.
// Lo gatilla el operador cuando el portal viene pesado.
func (s *Sesion) ActivarModoLento() {
	s.modoLento = true
	s.log.Warn().Msg("modo lento activado: techo del spinner duplicado")
}

// ModoLento informa si el operador pidió tiempos dobles.
func (s *Sesion) ModoLento() bool {
	return s.modoLento
}

// EsperarCargaCompleta espera a que el velo de carga del portal desaparezca.
// Primero sondea menos de un segundo si el velo siquiera apareció; si no
// apareció, deja un reposo corto y vuelve. Si apareció y no se va dentro del
// techo, devuelve ErrSpinnerPegado, que es distinto de un timeout común.
func (s *Sesion) EsperarCargaCompleta(techo time.Duration) error {
	if s.modoLento {
		techo *= 2
	}

	aparecio := false
	limiteSondeo := time.Now().Add(sondeoAparicion)
	for time.Now().Before(limiteSondeo) {
		if s.spinnerVisible() {
			aparecio = true
			break
		}
		time.Sleep(intervaloSondeo)
	}

	if !aparecio {
		time.Sleep(reposoSinSpinner)
		return nil
	}

	limite := time.Now().Add(techo)
	for time.Now().Before(limite) {
		if !s.spinnerVisible() {
			return nil
		}
		time.Sleep(intervaloEspera)
	}

	s.log.Error().Dur("techo", techo).Msg("el velo de carga sigue visible")
	return fmt.Errorf("%w tras %s", ErrSpinnerPegado, techo)
}

// EsperarHasta sondea el predicado a intervalo fijo hasta que entregue un
// elemento o se agote el plazo.
func (s *Sesion) EsperarHasta(pred func() (Elemento, bool), plazo, intervalo time.Duration) (Elemento, error) {
	limite := time.Now().Add(plazo)
	for {
		if el, ok := pred(); ok {
			return el, nil
		}
		if time.Now().After(limite) {
			return nil, fmt.Errorf("%w tras %s", ErrTiempoAgotado, plazo)
		}
		time.Sleep(intervalo)
	}
}

func (s *Sesion) spinnerVisible() bool {
	for _, sel := range selectoresSpinner {
		els, err := s.Pagina.Elementos(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				return true
			}
		}
	}
	return false
}
