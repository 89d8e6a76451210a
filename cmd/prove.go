package main

import (
	"fmt"
	"os"
	"time"

	"act/internal/cache"
	"act/internal/smt"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var (
	proveFile    string
	solverName   string
	smtTimeoutMS int
	cachePath    string
)

var proveCommand = &cobra.Command{
	Use:   "prove",
	Short: "discharge the proof obligations of a spec file",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		setupLogging()
		if err := prove(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	proveCommand.Flags().StringVar(&proveFile, "file", "", "spec file")
	proveCommand.Flags().StringVar(&solverName, "solver", "z3", "smt solver (z3 or cvc4)")
	proveCommand.Flags().IntVar(&smtTimeoutMS, "smttimeout", 20000, "smt timeout in milliseconds")
	proveCommand.Flags().BoolVar(&debugFlag, "debug", false, "print the smt conversation")
	proveCommand.Flags().StringVar(&cachePath, "cache", "", "verdict cache file")
}

func prove() error {
	act, err := frontend(proveFile)
	if err != nil {
		return err
	}

	solver, err := smt.ParseSolver(solverName)
	if err != nil {
		return err
	}
	cfg := smt.SMTConfig{Solver: solver, TimeoutMS: smtTimeoutMS, Debug: debugFlag}

	postQueries, err := smt.MkPostconditionQueries(act)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	invQueries, err := smt.MkInvariantQueries(act)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var store *cache.Cache
	if cachePath != "" {
		store, err = cache.Open(cachePath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	start := time.Now()
	failed := 0
	err = smt.WithSolver(cfg, func(inst *smt.SolverInstance) error {
		for _, q := range postQueries {
			res := runCached(inst, store, q)
			report(q.Title(), res)
			if res.Kind != smt.Unsat {
				failed++
			}
		}
		failed += proveInvariants(inst, store, invQueries)
		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("checked %d obligations in %.2fs", len(postQueries)+len(invQueries), time.Since(start).Seconds())
	if failed > 0 {
		return fmt.Errorf("%d claims do not hold", failed)
	}
	fmt.Println(smt.Colourize(32, "all claims hold"))
	return nil
}

// proveInvariants runs the grouped sub-queries of each invariant: the
// constructor query, then one query per behaviour, in source order. The
// invariant holds inductively only if every sub-query is unsat. Returns
// the number of invariants that do not hold.
func proveInvariants(inst *smt.SolverInstance, store *cache.Cache, queries []*smt.Query) int {
	type key struct {
		contract string
		index    int
	}
	holds := map[key]bool{}
	var order []key
	for _, q := range queries {
		k := key{q.Contract, q.InvIndex}
		if _, seen := holds[k]; !seen {
			holds[k] = true
			order = append(order, k)
		}
		res := runCached(inst, store, q)
		report(q.Title(), res)
		if res.Kind != smt.Unsat {
			holds[k] = false
		}
	}
	failed := 0
	for _, k := range order {
		if holds[k] {
			fmt.Println(smt.Colourize(32, fmt.Sprintf("invariant %d of %s holds inductively", k.index, k.contract)))
		} else {
			fmt.Println(smt.Colourize(31, fmt.Sprintf("invariant %d of %s does not hold", k.index, k.contract)))
			failed++
		}
	}
	return failed
}

// runCached consults the verdict cache before hitting the solver. Only
// holds-verdicts are cached: violations re-run so their counterexample
// can be shown, and errors are never cached.
func runCached(inst *smt.SolverInstance, store *cache.Cache, q *smt.Query) smt.Result {
	var k []byte
	if store != nil {
		k = cache.Key(q.Script.String())
		if verdict, ok := store.Get(k); ok && verdict == "unsat" {
			log.Debugf("cache hit for %s", q.Title())
			return smt.Result{Kind: smt.Unsat}
		}
	}
	res := inst.RunQuery(q)
	if store != nil && res.Kind == smt.Unsat {
		if err := store.Put(k, "unsat"); err != nil {
			log.Warnf("cache write failed: %v", err)
		}
	}
	return res
}

func report(title string, res smt.Result) {
	switch res.Kind {
	case smt.Unsat:
		fmt.Printf("%s: %s\n", title, smt.Colourize(32, "holds"))
	case smt.Sat:
		fmt.Printf("%s: %s\n", title, smt.Colourize(31, "violated"))
		if res.Model != nil {
			fmt.Print(res.Model.Format())
		}
	case smt.Unknown:
		fmt.Printf("%s: %s\n", title, smt.Colourize(33, "unknown (timeout?)"))
	default:
		fmt.Printf("%s: %s\n", title, smt.Colourize(31, "solver error: "+res.Err))
	}
}
