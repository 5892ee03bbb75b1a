package models

import "time"

// HallazgoCodigo es el resultado de buscar un código en el historial de
// prestaciones: el código encontrado con su fecha, o vacío si no apareció
// dentro de la ventana de la misión.
type HallazgoCodigo struct {
	Codigo string
	Fecha  time.Time
}

// Encontrado indica si hubo cruce.
func (h HallazgoCodigo) Encontrado() bool {
	return h.Codigo != ""
}

// FilaResultado es la unidad de salida del analizador: una fila por
// (paciente, misión). El escritor de reportes la consume tal cual.
type FilaResultado struct {
	Rut             string
	Nombre          string
	FechaReferencia time.Time
	Mision          string

	CasoEncontrado string // "Sin caso" cuando no hubo cruce de palabras clave
	EstadoCaso     string
	FechaCaso      time.Time

	Objetivo    HallazgoCodigo
	Habilitante HallazgoCodigo
	Excluyente  HallazgoCodigo

	Seguimiento string // clasificación por ventanas de vigencia

	IPD string
	OA  string
	APS string
	SIC string
}

// Problema registra un paciente que no pudo procesarse completo. La corrida
// sigue con el siguiente; esto queda para el reporte de problemas.
type Problema struct {
	Rut    string
	Nombre string
	Motivo string
	Cuando time.Time
}
