package analizador

import (
	"sync/atomic"
	"time"
)

// Interruptores son las banderas de control que el dueño de la corrida (la
// GUI o la consola) setea desde afuera y el analizador sondea en sus puntos
// de control: tope del ciclo por paciente y entre lecturas de secciones.
// Nunca se aborta a mitad de paciente para no dejar la cartola a medio
// expandir.
type Interruptores struct {
	detener atomic.Bool
	pausar  atomic.Bool
}

// NuevosInterruptores crea las banderas apagadas.
func NuevosInterruptores() *Interruptores {
	return &Interruptores{}
}

// Detener pide parar limpio después del paciente en vuelo.
func (i *Interruptores) Detener() { i.detener.Store(true) }

// DebeDetener informa si se pidió parar.
func (i *Interruptores) DebeDetener() bool { return i.detener.Load() }

// Pausar congela o descongela la corrida en el siguiente punto de control.
func (i *Interruptores) Pausar(en bool) { i.pausar.Store(en) }

// EnPausa informa si la corrida está congelada.
func (i *Interruptores) EnPausa() bool { return i.pausar.Load() }

// esperarSiEnPausa bloquea mientras dure la pausa, salvo que pidan detener.
func (i *Interruptores) esperarSiEnPausa() {
	for i.EnPausa() && !i.DebeDetener() {
		time.Sleep(200 * time.Millisecond)
	}
}
