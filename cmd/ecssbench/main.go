package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecss-go/ecss/pkg/ecss"
)

type position struct{ X, Y float64 }
type velocity struct{ DX, DY float64 }

func main() {
	entities := flag.Int("entities", 100000, "number of entities to create")
	dump := flag.Bool("dump", false, "spew-dump the first few sectors after the run")
	flag.Parse()

	if *entities <= 0 {
		fmt.Println("Usage: ./ecssbench -entities=<n> [-dump]")
		os.Exit(1)
	}

	log := buildLogger()
	log = log.Named("main")

	reg := ecss.NewRegistry(ecss.Options{ThreadSafe: true, Logger: log})
	positions := ecss.RegisterArray1[position](reg, ecss.Options{ThreadSafe: true, Logger: log}, nil)
	velocities := ecss.RegisterArray1[velocity](reg, ecss.Options{ThreadSafe: true, Logger: log}, nil)

	start := time.Now()
	ids := make([]ecss.EntityID, *entities)
	for i := range ids {
		id := reg.TakeEntity()
		ids[i] = id
		positions.Insert(id, position{X: float64(i)})
		if i%2 == 0 {
			velocities.Insert(id, velocity{DX: 1})
		}
	}
	log.Info("populated entities", zap.Int("count", *entities), zap.Duration("took", time.Since(start)))

	view := ecss.NewView2(positions, velocities, ecss.WithAliveFilter())

	moved := 0
	start = time.Now()
	view.EachPresent(func(id ecss.EntityID, pos *position, vel *velocity) {
		pos.X += vel.DX
		moved++
	})
	view.Close()
	log.Info("stepped simulation", zap.Int("moved", moved), zap.Duration("took", time.Since(start)))

	for i := 0; i < *entities; i += 3 {
		reg.DestroyEntity(ids[i])
	}
	if err := reg.Update(context.Background(), true); err != nil {
		log.Fatal("maintenance pass failed", zap.Error(err))
	}
	log.Info("ran maintenance pass", zap.Int("remaining", positions.Arr().Size()))

	if *dump {
		n := 3
		if positions.Arr().Size() < n {
			n = positions.Arr().Size()
		}
		for i := 0; i < n; i++ {
			if p, ok := positions.Arr().PinSectorAt(i); ok {
				spew.Dump(p)
				p.Release()
			}
		}
	}
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
