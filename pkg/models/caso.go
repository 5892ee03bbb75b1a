package models

import (
	"strings"
	"time"
)

// Caso representa un problema de salud registrado en el portal para un paciente.
// El portal es dueño del dato; acá solo se lee, nunca se persiste entre corridas.
type Caso struct {
	Problema    string
	Estado      string
	Motivo      string
	FechaInicio time.Time // cero = sin fecha
	FechaCierre time.Time // cero = sin fecha
}

// Cerrado compara el estado sin distinguir mayúsculas.
func (c Caso) Cerrado() bool {
	return strings.Contains(strings.ToLower(c.Estado), "cerrado")
}

// FilaMiniTabla es la proyección compacta de un caso que muestra el portal
// inmediatamente después de buscar a un paciente. Se descarta al terminar
// con el paciente.
type FilaMiniTabla struct {
	Problema    string
	Estado      string
	Motivo      string
	FechaInicio time.Time
	FechaCierre time.Time
}

// ACaso convierte la fila compacta al modelo de caso completo.
func (f FilaMiniTabla) ACaso() Caso {
	return Caso{
		Problema:    f.Problema,
		Estado:      f.Estado,
		Motivo:      f.Motivo,
		FechaInicio: f.FechaInicio,
		FechaCierre: f.FechaCierre,
	}
}
