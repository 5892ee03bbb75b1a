// Package database persiste los resultados de una corrida en PostgreSQL.
// Es opcional: sin cadena de conexión configurada la corrida solo emite al
// escritor de reportes.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // driver PostgreSQL

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/models"
)

type Servicio struct {
	db *sql.DB
}

// NuevoServicio abre y verifica la conexión.
func NuevoServicio(cadenaConexion string) (*Servicio, error) {
	db, err := sql.Open("postgres", cadenaConexion)
	if err != nil {
		return nil, fmt.Errorf("error conectando a la base: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error verificando la base: %w", err)
	}
	return &Servicio{db: db}, nil
}

func (s *Servicio) Close() error {
	return s.db.Close()
}

// CrearEsquema deja listas las tablas de corridas, filas y problemas.
func (s *Servicio) CrearEsquema() error {
	esquema := `
	CREATE TABLE IF NOT EXISTS corridas (
		id        SERIAL PRIMARY KEY,
		iniciada  TIMESTAMPTZ NOT NULL,
		pacientes INTEGER NOT NULL,
		misiones  INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS filas_resultado (
		id                SERIAL PRIMARY KEY,
		corrida_id        INTEGER NOT NULL REFERENCES corridas(id),
		rut               TEXT NOT NULL,
		nombre            TEXT NOT NULL,
		fecha_referencia  DATE,
		mision            TEXT NOT NULL,
		caso_encontrado   TEXT NOT NULL,
		estado_caso       TEXT,
		fecha_caso        DATE,
		codigo_objetivo   TEXT,
		fecha_objetivo    DATE,
		habilitante       TEXT,
		fecha_habilitante DATE,
		excluyente        TEXT,
		fecha_excluyente  DATE,
		seguimiento       TEXT,
		ipd               TEXT,
		oa                TEXT,
		aps               TEXT,
		sic               TEXT
	);
	CREATE TABLE IF NOT EXISTS problemas (
		id         SERIAL PRIMARY KEY,
		corrida_id INTEGER NOT NULL REFERENCES corridas(id),
		rut        TEXT NOT NULL,
		nombre     TEXT,
		motivo     TEXT NOT NULL,
		cuando     TIMESTAMPTZ NOT NULL
	);`
	if _, err := s.db.Exec(esquema); err != nil {
		return fmt.Errorf("error creando el esquema: %w", err)
	}
	return nil
}

// GuardarCorrida inserta la corrida completa en una transacción.
func (s *Servicio) GuardarCorrida(filas []models.FilaResultado, problemas []models.Problema, totalPacientes, totalMisiones int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error iniciando la transacción: %w", err)
	}
	defer tx.Rollback()

	var corridaID int
	err = tx.QueryRow(
		`INSERT INTO corridas (iniciada, pacientes, misiones) VALUES ($1, $2, $3) RETURNING id`,
		time.Now(), totalPacientes, totalMisiones,
	).Scan(&corridaID)
	if err != nil {
		return fmt.Errorf("error insertando la corrida: %w", err)
	}

	for _, fila := range filas {
		if err := insertarFila(tx, corridaID, fila); err != nil {
			return fmt.Errorf("error insertando fila de %s: %w", fila.Rut, err)
		}
	}
	for _, p := range problemas {
		if err := insertarProblema(tx, corridaID, p); err != nil {
			return fmt.Errorf("error insertando problema de %s: %w", p.Rut, err)
		}
	}

	return tx.Commit()
}

func insertarFila(tx *sql.Tx, corridaID int, fila models.FilaResultado) error {
	_, err := tx.Exec(`
	INSERT INTO filas_resultado (
		corrida_id, rut, nombre, fecha_referencia, mision,
		caso_encontrado, estado_caso, fecha_caso,
		codigo_objetivo, fecha_objetivo,
		habilitante, fecha_habilitante,
		excluyente, fecha_excluyente,
		seguimiento, ipd, oa, aps, sic
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		corridaID, fila.Rut, fila.Nombre, fechaONulo(fila.FechaReferencia), fila.Mision,
		fila.CasoEncontrado, fila.EstadoCaso, fechaONulo(fila.FechaCaso),
		fila.Objetivo.Codigo, fechaONulo(fila.Objetivo.Fecha),
		fila.Habilitante.Codigo, fechaONulo(fila.Habilitante.Fecha),
		fila.Excluyente.Codigo, fechaONulo(fila.Excluyente.Fecha),
		fila.Seguimiento, fila.IPD, fila.OA, fila.APS, fila.SIC,
	)
	return err
}

func insertarProblema(tx *sql.Tx, corridaID int, p models.Problema) error {
	_, err := tx.Exec(
		`INSERT INTO problemas (corrida_id, rut, nombre, motivo, cuando) VALUES ($1,$2,$3,$4,$5)`,
		corridaID, p.Rut, p.Nombre, p.Motivo, p.Cuando,
	)
	return err
}

func fechaONulo(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
