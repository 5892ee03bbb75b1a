// Package reintento implementa el reintento acotado con espera creciente y
// el disyuntor que corta en seco cuando la sesión entera parece muerta.
package reintento

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrCircuitoAbierto indica que hubo demasiadas fallas seguidas entre
// operaciones distintas: no tiene sentido seguir martillando el portal.
var ErrCircuitoAbierto = errors.New("disyuntor abierto: demasiadas fallas seguidas")

// EsperasPorDefecto es la escala de espera entre intentos, topada en 45s.
var EsperasPorDefecto = []time.Duration{
	2 * time.Second, 3 * time.Second, 5 * time.Second, 8 * time.Second,
	15 * time.Second, 20 * time.Second, 30 * time.Second, 45 * time.Second,
}

// Politica define cuántos intentos hacer y cuánto esperar entre ellos.
type Politica struct {
	MaxIntentos int
	Esperas     []time.Duration
}

// PoliticaPorDefecto son tres intentos con la escala estándar.
func PoliticaPorDefecto() Politica {
	return Politica{MaxIntentos: 3, Esperas: EsperasPorDefecto}
}

func (p Politica) espera(intento int) time.Duration {
	if len(p.Esperas) == 0 {
		return 2 * time.Second
	}
	if intento >= len(p.Esperas) {
		return p.Esperas[len(p.Esperas)-1]
	}
	return p.Esperas[intento]
}

// Dormir permite inyectar el reloj en las pruebas. En producción es time.Sleep.
var Dormir = time.Sleep

// Disyuntor cuenta fallas consecutivas a través de operaciones distintas.
// Pasado el umbral, Ejecutar falla de inmediato hasta que algo salga bien.
type Disyuntor struct {
	mu       sync.Mutex
	umbral   int
	seguidas int
}

// NuevoDisyuntor crea un disyuntor con el umbral dado (mínimo 1).
func NuevoDisyuntor(umbral int) *Disyuntor {
	if umbral < 1 {
		umbral = 1
	}
	return &Disyuntor{umbral: umbral}
}

// Abierto informa si el circuito está cortado.
func (d *Disyuntor) Abierto() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seguidas >= d.umbral
}

// Registrar anota el resultado de un intento.
func (d *Disyuntor) Registrar(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		d.seguidas = 0
		return
	}
	d.seguidas++
}

// Reiniciar cierra el circuito a mano (por ejemplo tras un re-login).
func (d *Disyuntor) Reiniciar() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seguidas = 0
}

// Ejecutar corre la operación con la política dada. Solo reintenta errores
// que esReintentable acepte; cualquier otro corta al tiro. El disyuntor se
// consulta antes de cada intento y se alimenta con cada resultado.
func Ejecutar(log zerolog.Logger, pol Politica, dis *Disyuntor, nombre string, op func() error, esReintentable func(error) bool) error {
	var ultimo error
	for intento := 0; intento < pol.MaxIntentos; intento++ {
		if dis != nil && dis.Abierto() {
			return fmt.Errorf("%s: %w", nombre, ErrCircuitoAbierto)
		}

		err := op()
		if dis != nil {
			dis.Registrar(err)
		}
		if err == nil {
			return nil
		}
		ultimo = err

		if esReintentable != nil && !esReintentable(err) {
			return fmt.Errorf("%s: %w", nombre, err)
		}
		if intento == pol.MaxIntentos-1 {
			break
		}

		espera := pol.espera(intento)
		log.Warn().Err(err).Int("intento", intento+1).Dur("espera", espera).
			Str("operacion", nombre).Msg("falla transitoria, reintentando")
		Dormir(espera)
	}
	return fmt.Errorf("%s: agotados %d intentos: %w", nombre, pol.MaxIntentos, ultimo)
}
