// Herramienta de diagnóstico: se cuelga de un Chrome ya abierto, clasifica
// la pantalla actual del portal y sondea los localizadores clave. Sirve para
// ajustar selectores cuando el portal cambia sin tocar el analizador.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nozhtrash/Nozhgess-sub000/pkg/browser"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/estado"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/minitabla"
	"github.com/Nozhtrash/Nozhgess-sub000/pkg/selector"
)

func main() {
	puerto := flag.Int("puerto", 9222, "puerto de depuración remota de Chrome")
	conMiniTabla := flag.Bool("minitabla", false, "además intenta leer la mini-tabla de la búsqueda")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	fmt.Println("🔍 Detección de estado del portal")
	fmt.Println("=================================")

	navegador, pagina, err := browser.Conectar(*puerto)
	if err != nil {
		log.Fatal("Error conectando al navegador:", err)
	}
	defer navegador.Close()

	fmt.Printf("URL actual: %s\n", pagina.URL())

	clas := estado.NuevoClasificador(pagina, logger)
	inicio := time.Now()
	est := clas.Detectar()
	fmt.Printf("Estado detectado: %s (en %v)\n", est, time.Since(inicio).Round(time.Millisecond))
	fmt.Printf("Autenticado: %v\n", est.Autenticado())

	fmt.Println("\nSondeo de localizadores:")
	sondear(pagina, "input de RUT del buscador", []selector.Localizador{
		selector.Css("input#rutBusqueda"),
		selector.Css("input[formcontrolname='run']"),
	})
	sondear(pagina, "botón Buscar", []selector.Localizador{
		selector.Css("button#btnBuscar"),
		selector.Xp("//button[contains(., 'Buscar')]"),
	})
	sondear(pagina, "velo de carga", []selector.Localizador{
		selector.Css(".loading-overlay"),
		selector.Css(".spinner"),
		selector.Css("[class*='cargando']"),
	})

	if *conMiniTabla {
		ses := browser.NuevaSesion(pagina, logger)
		filas := minitabla.Leer(ses, logger, minitabla.Opciones{})
		fmt.Printf("\nMini-tabla: %d filas\n", len(filas))
		for _, fila := range filas {
			fmt.Printf("  - %s | %s | %s\n", fila.Problema, fila.Estado, fila.Motivo)
		}
	}
}

func sondear(p browser.Pagina, nombre string, candidatos []selector.Localizador) {
	el := selector.Buscar(p, candidatos, selector.Presente, 2*time.Second)
	if el == nil {
		fmt.Printf("  ❌ %s: no encontrado\n", nombre)
		return
	}
	visible, _ := el.Visible()
	fmt.Printf("  ✅ %s: presente (visible: %v)\n", nombre, visible)
}
