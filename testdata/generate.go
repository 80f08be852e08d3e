// Command generate writes a synthetic patient dataset for manual runs:
//
//	go run testdata/generate.go
//	lazytable testdata/patients.parquet
package main

import (
	"log"
	"math/rand"
	"os"

	"github.com/parquet-go/parquet-go"
)

type Patient struct {
	BMI     float64 `parquet:"BMI"`
	Glucose float64 `parquet:"Glucose"`
	Age     int64   `parquet:"Age"`
	Outcome int64   `parquet:"Outcome"`
}

func main() {
	rng := rand.New(rand.NewSource(42))

	patients := make([]Patient, 0, 768)
	for i := 0; i < 768; i++ {
		p := Patient{
			BMI:     16 + rng.Float64()*30,
			Glucose: 70 + rng.Float64()*120,
			Age:     int64(18 + rng.Intn(60)),
		}
		// Higher glucose correlates with a positive outcome.
		if p.Glucose > 140 && rng.Float64() < 0.6 {
			p.Outcome = 1
		}
		patients = append(patients, p)
	}
	// A few outliers the BMI screen should reject.
	patients = append(patients,
		Patient{BMI: 0, Glucose: 100, Age: 33},
		Patient{BMI: 67.1, Glucose: 150, Age: 51},
	)

	file, err := os.Create("patients.parquet")
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Patient](file)
	defer writer.Close()

	if _, err := writer.Write(patients); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated patients.parquet with %d rows", len(patients))
}
