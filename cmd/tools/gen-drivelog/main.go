// Command gen-drivelog generates synthetic drive-log CSV files for
// testing upload, path reconstruction, and similarity scoring.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
)

func main() {
	output := flag.String("o", "drive.csv", "output path")
	samples := flag.Int("n", 1000, "number of samples")
	hz := flag.Float64("hz", 100, "sampling frequency")
	scenario := flag.String("scenario", "lane-change", "scenario: straight, arc, lane-change, stop-and-go")
	flag.Parse()

	angles, speeds, err := generate(*scenario, *samples, *hz)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("creating %s: %v", *output, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"wheel_angle", "speed"}); err != nil {
		log.Fatalf("writing header: %v", err)
	}
	for i := range angles {
		record := []string{
			fmt.Sprintf("%.6f", angles[i]),
			fmt.Sprintf("%.3f", speeds[i]),
		}
		if err := w.Write(record); err != nil {
			log.Fatalf("writing row %d: %v", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("flushing csv: %v", err)
	}

	log.Printf("✓ Created: %s (%d samples, %s)", *output, *samples, *scenario)
}

// generate produces steering (radians) and speed (m/s) series for the
// named scenario.
func generate(scenario string, n int, hz float64) (angles, speeds []float64, err error) {
	angles = make([]float64, n)
	speeds = make([]float64, n)

	switch scenario {
	case "straight":
		for i := range speeds {
			speeds[i] = 15
		}
	case "arc":
		for i := range speeds {
			angles[i] = 0.05
			speeds[i] = 10
		}
	case "lane-change":
		// A sinusoidal steering pulse one second in.
		pulse := int(hz)
		for i := range speeds {
			speeds[i] = 20
			if i >= pulse && i < 3*pulse {
				angles[i] = 0.03 * math.Sin(2*math.Pi*float64(i-pulse)/float64(2*pulse))
			}
		}
	case "stop-and-go":
		// Alternate five seconds moving, five seconds stopped.
		period := int(5 * hz)
		if period == 0 {
			period = 1
		}
		for i := range speeds {
			if (i/period)%2 == 0 {
				speeds[i] = 8
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	return angles, speeds, nil
}
