// Command cachebench drives concurrent load against the caching core and
// reports hit rates and throughput. It is the manual stress/soak tool for
// the single-flight and eviction paths; correctness is covered by the unit
// suites.
package main

import (
	"fmt"
	stdlog "log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"

	"github.com/jodogne/OrthancMirror-sub012/cache"
	"github.com/jodogne/OrthancMirror-sub012/internal/tag"
	"github.com/jodogne/OrthancMirror-sub012/log"
	"github.com/jodogne/OrthancMirror-sub012/metrics/prom"
)

func main() {
	conf, err := config()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}
	l := log.NewLogger(conf.LogLevel, conf.LogDestination)
	if tag.Debug {
		l.Warn("Using debug build. It has more runtime checks and large performance overhead.")
	}

	adapter := prom.New(prometheus.DefaultRegisterer, "cachebench", "string_cache")
	stringCache := cache.NewStringCache(l, cache.Options{
		MaxBudget: conf.CacheBudget,
		Metrics:   adapter,
	})
	archive, err := cache.NewSharedArchive[*download](l, conf.ArchiveSize)
	if err != nil {
		l.Fatal("archive setup error: ", err)
	}

	if conf.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			l.Infof("Prometheus metrics on http://%s/metrics", conf.MetricsAddr)
			l.Fatal(http.ListenAndServe(conf.MetricsAddr, nil))
		}()
	}

	fetches := gometrics.NewRegisteredMeter("fetches", gometrics.DefaultRegistry)
	loads := gometrics.NewRegisteredMeter("loads", gometrics.DefaultRegistry)
	go gometrics.Log(gometrics.DefaultRegistry, 10*time.Second,
		stdlog.New(conf.LogDestination, "metrics: ", stdlog.Lmicroseconds))

	l.Infof("Running %v operations over %v keys with %v workers, budget %v bytes.",
		conf.Operations, conf.Keys, conf.Workers, conf.CacheBudget)

	start := time.Now()
	var g errgroup.Group
	perWorker := conf.Operations / conf.Workers
	for w := 0; w < conf.Workers; w++ {
		seed := int64(w)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perWorker; i++ {
				key := "instance-" + strconv.Itoa(rng.Intn(conf.Keys))
				fetches.Mark(1)
				acc := stringCache.Access()
				if _, ok := acc.Fetch(key); !ok {
					// This worker won the loader role: produce the value.
					loads.Mark(1)
					if err := acc.Add(key, fakeValue(key, conf.ValueSize)); err != nil {
						acc.Release()
						return err
					}
				}
				acc.Release()

				// A slice of operations also exercises the archive.
				if rng.Intn(64) == 0 {
					id := archive.Add(&download{key: key})
					a := archive.Open(id)
					if _, err := a.Get(); err != nil {
						a.Release()
						return err
					}
					a.Release()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Fatal("bench failed: ", err)
	}

	elapsed := time.Since(start)
	l.Infof("Done in %v: %v fetches (%.0f/s), %v loads, %v bytes resident.",
		elapsed, fetches.Count(), float64(fetches.Count())/elapsed.Seconds(),
		loads.Count(), stringCache.CurrentSize())
}

// download stands in for a prepared result blob held by the archive.
type download struct {
	key string
}

func fakeValue(key string, size int64) string {
	b := make([]byte, size)
	for i := range b {
		b[i] = key[i%len(key)]
	}
	return string(b)
}
