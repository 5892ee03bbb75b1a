package reintento

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var errTransitorio = errors.New("falla transitoria")

func sinDormir(t *testing.T) {
	t.Helper()
	original := Dormir
	Dormir = func(time.Duration) {}
	t.Cleanup(func() { Dormir = original })
}

func TestEjecutarExitoTrasFallasTransitorias(t *testing.T) {
	sinDormir(t)

	intentos := 0
	err := Ejecutar(zerolog.Nop(), PoliticaPorDefecto(), nil, "op",
		func() error {
			intentos++
			if intentos < 3 {
				return errTransitorio
			}
			return nil
		},
		func(err error) bool { return errors.Is(err, errTransitorio) })

	assert.NoError(t, err)
	assert.Equal(t, 3, intentos)
}

func TestEjecutarAgotaIntentos(t *testing.T) {
	sinDormir(t)

	intentos := 0
	err := Ejecutar(zerolog.Nop(), PoliticaPorDefecto(), nil, "op",
		func() error { intentos++; return errTransitorio },
		func(err error) bool { return true })

	assert.ErrorIs(t, err, errTransitorio)
	assert.Equal(t, 3, intentos)
}

func TestEjecutarNoReintentaLoNoReintentable(t *testing.T) {
	sinDormir(t)

	errFatal := errors.New("falla definitiva")
	intentos := 0
	err := Ejecutar(zerolog.Nop(), PoliticaPorDefecto(), nil, "op",
		func() error { intentos++; return errFatal },
		func(err error) bool { return false })

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, intentos)
}

func TestDisyuntorAbrePasadoElUmbral(t *testing.T) {
	d := NuevoDisyuntor(3)
	assert.False(t, d.Abierto())

	d.Registrar(errTransitorio)
	d.Registrar(errTransitorio)
	assert.False(t, d.Abierto())

	d.Registrar(errTransitorio)
	assert.True(t, d.Abierto())

	d.Reiniciar()
	assert.False(t, d.Abierto())
}

func TestDisyuntorUnExitoCierraElConteo(t *testing.T) {
	d := NuevoDisyuntor(2)
	d.Registrar(errTransitorio)
	d.Registrar(nil)
	d.Registrar(errTransitorio)
	assert.False(t, d.Abierto())
}

func TestEjecutarConDisyuntorAbiertoCortaAlTiro(t *testing.T) {
	sinDormir(t)

	d := NuevoDisyuntor(1)
	d.Registrar(errTransitorio)

	intentos := 0
	err := Ejecutar(zerolog.Nop(), PoliticaPorDefecto(), d, "op",
		func() error { intentos++; return nil },
		nil)

	assert.ErrorIs(t, err, ErrCircuitoAbierto)
	assert.Zero(t, intentos)
}

func TestEscalaDeEsperas(t *testing.T) {
	p := Politica{MaxIntentos: 10, Esperas: []time.Duration{time.Second, 2 * time.Second}}
	assert.Equal(t, time.Second, p.espera(0))
	assert.Equal(t, 2*time.Second, p.espera(1))
	// Pasado el final de la escala se queda en el tope.
	assert.Equal(t, 2*time.Second, p.espera(7))
}
