package models

import "time"

// RegistroPrestacion es una línea del historial de prestaciones dentro de un
// caso abierto. El código es la unidad de cruce contra los códigos objetivo,
// habilitantes y excluyentes de cada misión.
type RegistroPrestacion struct {
	Fecha       time.Time // cero = sin fecha
	Codigo      string
	Descripcion string
	Referencia  string
}

// RegistroSeccion es una entrada de las sub-tablas de la cartola
// (IPD, OA, APS, SIC). Todas comparten la misma forma y la misma política
// de orden: descendente por fecha, fechas ilegibles al final.
type RegistroSeccion struct {
	Fecha       time.Time
	Estado      string
	Diagnostico string
	Detalle     string
}

// Paciente es una entrada de la nómina de entrada: fecha de referencia,
// RUT y nombre, en el orden en que vienen del lector externo.
type Paciente struct {
	FechaReferencia time.Time
	Rut             string
	Nombre          string
}
