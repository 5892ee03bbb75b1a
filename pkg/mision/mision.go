// Package mision define la configuración de una corrida: el portal, las
// credenciales, los tiempos y la lista de misiones. Toda la variación por
// enfermedad vive acá como datos; el analizador es uno solo.
package mision

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// MaxFilasSeccion es el tope de entradas "más recientes" por sub-tabla.
// Cero en una sección la deja sin leer.
type MaxFilasSeccion struct {
	IPD int `mapstructure:"ipd"`
	OA  int `mapstructure:"oa"`
	APS int `mapstructure:"aps"`
	SIC int `mapstructure:"sic"`
}

// Mision es una unidad de configuración, inmutable durante la corrida: qué
// caso buscar y qué códigos cruzar contra el historial de prestaciones.
type Mision struct {
	Nombre         string          `mapstructure:"nombre"`
	Palabras       []string        `mapstructure:"palabras"`
	CodigoObjetivo string          `mapstructure:"codigo_objetivo"`
	Habilitantes   []string        `mapstructure:"habilitantes"`
	Excluyentes    []string        `mapstructure:"excluyentes"`
	VentanaDias    int             `mapstructure:"ventana_dias"`
	VigenciaDias   int             `mapstructure:"vigencia_dias"`
	MaxFilas       MaxFilasSeccion `mapstructure:"max_filas"`
	FiltrarSinCaso bool            `mapstructure:"filtrar_evento_sin_caso"`
}

// Portal agrupa la configuración de conexión.
type Portal struct {
	URL           string `mapstructure:"url"`
	PuertoDebug   int    `mapstructure:"puerto_debug"`
	Rut           string `mapstructure:"rut"`
	Clave         string `mapstructure:"clave"`
	Unidad        string `mapstructure:"unidad"`
	TechoSpinnerS int    `mapstructure:"techo_spinner_segundos"`
}

// Config es la corrida completa.
type Config struct {
	Portal   Portal   `mapstructure:"portal"`
	Postgres string   `mapstructure:"postgres"` // vacío = no persistir
	Misiones []Mision `mapstructure:"misiones"`
}

// Cargar lee la configuración YAML con viper; NOZHGESS_* pisa por entorno
// (por ejemplo NOZHGESS_PORTAL_CLAVE).
func Cargar(ruta string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(ruta)
	v.SetEnvPrefix("nozhgess")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("portal.puerto_debug", 9222)
	v.SetDefault("portal.techo_spinner_segundos", 25)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error leyendo la configuración %s: %w", ruta, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error interpretando la configuración: %w", err)
	}
	if err := validar(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validar(cfg *Config) error {
	if cfg.Portal.URL == "" {
		return fmt.Errorf("configuración sin portal.url")
	}
	if len(cfg.Misiones) == 0 {
		return fmt.Errorf("configuración sin misiones")
	}
	for i, m := range cfg.Misiones {
		if m.Nombre == "" {
			return fmt.Errorf("misión %d sin nombre", i)
		}
		if len(m.Palabras) == 0 {
			return fmt.Errorf("misión %q sin palabras clave", m.Nombre)
		}
		if m.CodigoObjetivo == "" {
			return fmt.Errorf("misión %q sin código objetivo", m.Nombre)
		}
		if m.VentanaDias <= 0 {
			cfg.Misiones[i].VentanaDias = 365
		}
		if m.VigenciaDias <= 0 {
			cfg.Misiones[i].VigenciaDias = 90
		}
	}
	return nil
}
