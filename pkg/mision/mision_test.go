package mision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configCompleta = `
portal:
  url: "https://portal.hospital.cl/app"
  rut: "12345678-5"
  clave: "secreta"
  unidad: "CDT"

postgres: ""

misiones:
  - nombre: "Diabetes"
    palabras: ["diabetes", "mellitus"]
    codigo_objetivo: "903001"
    habilitantes: ["904001"]
    excluyentes: ["905001"]
    ventana_dias: 180
    vigencia_dias: 30
    max_filas:
      ipd: 3
      oa: 2
  - nombre: "Hipertensión"
    palabras: ["hipertension"]
    codigo_objetivo: "903002"
    filtrar_evento_sin_caso: true
`

func escribirConfig(t *testing.T, contenido string) string {
	t.Helper()
	ruta := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(ruta, []byte(contenido), 0o644))
	return ruta
}

func TestCargar(t *testing.T) {
	cfg, err := Cargar(escribirConfig(t, configCompleta))
	require.NoError(t, err)

	assert.Equal(t, "https://portal.hospital.cl/app", cfg.Portal.URL)
	assert.Equal(t, 9222, cfg.Portal.PuertoDebug, "puerto por defecto")
	assert.Equal(t, 25, cfg.Portal.TechoSpinnerS, "techo por defecto")

	require.Len(t, cfg.Misiones, 2)
	diabetes := cfg.Misiones[0]
	assert.Equal(t, []string{"diabetes", "mellitus"}, diabetes.Palabras)
	assert.Equal(t, "903001", diabetes.CodigoObjetivo)
	assert.Equal(t, 180, diabetes.VentanaDias)
	assert.Equal(t, 30, diabetes.VigenciaDias)
	assert.Equal(t, 3, diabetes.MaxFilas.IPD)
	assert.Equal(t, 2, diabetes.MaxFilas.OA)
	assert.Zero(t, diabetes.MaxFilas.APS, "sección sin tope no se lee")
	assert.False(t, diabetes.FiltrarSinCaso)

	hipertension := cfg.Misiones[1]
	assert.Equal(t, 365, hipertension.VentanaDias, "ventana por defecto")
	assert.Equal(t, 90, hipertension.VigenciaDias, "vigencia por defecto")
	assert.True(t, hipertension.FiltrarSinCaso)
}

func TestCargarRechazaConfigIncompleta(t *testing.T) {
	casos := []struct {
		nombre    string
		contenido string
	}{
		{"sin url", "misiones:\n  - nombre: x\n    palabras: [a]\n    codigo_objetivo: b\n"},
		{"sin misiones", "portal:\n  url: \"https://portal\"\n"},
		{"mision sin nombre", "portal:\n  url: \"https://portal\"\nmisiones:\n  - palabras: [a]\n    codigo_objetivo: b\n"},
		{"mision sin palabras", "portal:\n  url: \"https://portal\"\nmisiones:\n  - nombre: x\n    codigo_objetivo: b\n"},
		{"mision sin codigo", "portal:\n  url: \"https://portal\"\nmisiones:\n  - nombre: x\n    palabras: [a]\n"},
	}
	for _, c := range casos {
		_, err := Cargar(escribirConfig(t, c.contenido))
		assert.Error(t, err, c.nombre)
	}
}

func TestCargarArchivoInexistente(t *testing.T) {
	_, err := Cargar(filepath.Join(t.TempDir(), "no-existe.yaml"))
	assert.Error(t, err)
}
