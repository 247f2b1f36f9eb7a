// Command seed writes a synthetic partner file in the Receita Federal layout, for
// local runs of the loader and the query service.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/odyssey-erp/quadro/internal/registry"
)

var (
	states         = []string{"SP", "RJ", "MG", "RS", "PR", "BA", "SC", "PE", "CE", "DF"}
	qualifications = []struct {
		code int
		desc string
	}{
		{5, "Administrador"},
		{10, "Diretor"},
		{16, "Presidente"},
		{22, "Sócio"},
		{49, "Sócio-Administrador"},
	}
	nameParts = []string{"Alfa", "Brasil", "Central", "Delta", "Norte", "Sul", "Nova", "Rio", "Serra", "Vale"}
	people    = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fabio", "Gabriela", "Heitor", "Iara", "João"}
	surnames  = []string{"Silva", "Souza", "Oliveira", "Santos", "Lima", "Costa", "Pereira", "Almeida"}
)

// options controls the generated file.
type options struct {
	Companies    int
	Operators    int
	PerCompany   int
	Seed         int64
	SharedChance float64
}

func main() {
	out := flag.String("o", "ReceitaFederal_QuadroSocietario.csv", "output file, - for stdout")
	opts := options{}
	flag.IntVar(&opts.Companies, "companies", 1000, "number of companies")
	flag.IntVar(&opts.Operators, "operators", 1500, "size of the operator pool")
	flag.IntVar(&opts.PerCompany, "per-company", 3, "maximum operators per company")
	flag.Int64Var(&opts.Seed, "seed", 1, "random seed")
	flag.Parse()

	w := io.Writer(os.Stdout)
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	buf := bufio.NewWriter(w)
	rows, err := generate(buf, opts)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	if err := buf.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	fmt.Fprintf(os.Stderr, "→ wrote %d rows\n", rows)
}

// generate writes the header and one line per company–operator edge. The same seed
// always yields the same file.
func generate(w io.Writer, opts options) (int, error) {
	if opts.Companies <= 0 || opts.Operators <= 0 || opts.PerCompany <= 0 {
		return 0, fmt.Errorf("companies, operators and per-company must be positive")
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	operators := make([]registry.Record, opts.Operators)
	for i := range operators {
		q := qualifications[rng.Intn(len(qualifications))]
		personType := 2
		if rng.Intn(5) == 0 {
			personType = 1
		}
		operators[i] = registry.Record{
			PersonType:        personType,
			OperatorTaxID:     fmt.Sprintf("%011d", rng.Int63n(1e11)),
			QualificationCode: q.code,
			QualificationDesc: q.desc,
			OperatorName:      fmt.Sprintf("%s %s %d", people[rng.Intn(len(people))], surnames[rng.Intn(len(surnames))], i),
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(registry.Columns); err != nil {
		return 0, err
	}

	rows := 0
	for c := 0; c < opts.Companies; c++ {
		company := fmt.Sprintf("%s %s %d", nameParts[rng.Intn(len(nameParts))], nameParts[rng.Intn(len(nameParts))], c)
		taxID := fmt.Sprintf("%014d", rng.Int63n(1e14))
		state := states[rng.Intn(len(states))]
		n := 1 + rng.Intn(opts.PerCompany)
		for k := 0; k < n; k++ {
			rec := operators[rng.Intn(len(operators))]
			rec.TaxID = taxID
			rec.CompanyName = company
			rec.State = state
			if err := cw.Write(rec.Fields()); err != nil {
				return rows, err
			}
			rows++
		}
	}
	cw.Flush()
	return rows, cw.Error()
}
