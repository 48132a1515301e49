// Command planbatch plans a JSON array of trips concurrently and prints their summaries.
//
//	planbatch -in trips.json [-provider straight] [-limit 4] [-save]
//
// Each element looks like the POST /trips body, plus an optional "signature".
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/config"
	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/logger"
	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/planner"
	"eld_trip_planner/internal/store"
)

type location struct {
	Name        string     `json:"name"`
	Coordinates [2]float64 `json:"coordinates"` // [lat, lon]
}

func (l location) model() models.Location {
	return models.Location{Name: l.Name, Lat: l.Coordinates[0], Lon: l.Coordinates[1]}
}

type tripInput struct {
	CurrentLocation   location `json:"current_location"`
	PickupLocation    location `json:"pickup_location"`
	DropoffLocation   location `json:"dropoff_location"`
	CurrentCycleHours float64  `json:"current_cycle_hours"`
	Signature         string   `json:"signature"`
}

type summary struct {
	Index         int               `json:"index"`
	TotalDistance float64           `json:"total_distance"`
	TotalDuration float64           `json:"total_duration"`
	CycleHours    float64           `json:"current_cycle_hours"`
	Stops         []models.Stop     `json:"stops"`
	DailyLogs     []models.DailyLog `json:"daily_logs"`
	TripID        string            `json:"trip_id,omitempty"`
	Error         string            `json:"error,omitempty"`
}

func main() {
	in := flag.String("in", "-", "input JSON file, - for stdin")
	provider := flag.String("provider", "", "routing provider override: mapbox, google or straight")
	limit := flag.Int("limit", 4, "trips planned at once")
	save := flag.Bool("save", false, "persist each plan to the configured database")
	flag.Parse()

	settings := config.Load()
	logger.Setup("", settings.LogLevel)
	logrus.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, *in, *provider, *limit, *save, os.Stdout); err != nil {
		logrus.WithError(err).Fatal("batch planning failed")
	}
}

func run(ctx context.Context, settings config.Settings, in, provider string, limit int, save bool, out io.Writer) error {
	inputs, err := readInputs(in)
	if err != nil {
		return err
	}

	opts := settings.GatewayOptions()
	if provider != "" {
		opts.Provider = provider
	}
	gw, err := gateway.New(ctx, opts)
	if err != nil {
		return err
	}

	reqs := make([]planner.Request, 0, len(inputs))
	for i, ti := range inputs {
		if ti.CurrentCycleHours < 0 || ti.CurrentCycleHours > planner.CycleLimitHours {
			return fmt.Errorf("trip %d: current_cycle_hours must be between 0 and %g", i, planner.CycleLimitHours)
		}
		reqs = append(reqs, planner.Request{
			Trip: &models.Trip{
				Current:           ti.CurrentLocation.model(),
				Pickup:            ti.PickupLocation.model(),
				Dropoff:           ti.DropoffLocation.model(),
				CurrentCycleHours: ti.CurrentCycleHours,
			},
			Signature: ti.Signature,
		})
	}

	results, planErr := planner.NewPipeline(gw).PlanMany(ctx, reqs, limit)

	var st *store.Store
	if save {
		st, err = config.InitDB(ctx, settings, logger.GormLogger())
		if err != nil {
			return err
		}
	}

	summaries := make([]summary, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			summaries = append(summaries, summary{Index: i, Error: r.Err.Error()})
			continue
		}
		p := r.Plan
		s := summary{
			Index:         i,
			TotalDistance: p.Trip.TotalDistance,
			TotalDuration: p.Trip.TotalDuration,
			CycleHours:    p.Trip.CurrentCycleHours,
			Stops:         p.Stops,
			DailyLogs:     p.DailyLogs,
		}
		if st != nil {
			if err := st.SavePlan(ctx, p); err != nil {
				return fmt.Errorf("save trip %d: %w", i, err)
			}
			s.TripID = p.Trip.ID.String()
		}
		summaries = append(summaries, s)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		return err
	}
	return planErr
}

func readInputs(path string) ([]tripInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var inputs []tripInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}
	return inputs, nil
}
