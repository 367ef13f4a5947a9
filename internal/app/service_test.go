package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/ecopoints/internal/adapters/repository"
	service "github.com/okian/ecopoints/internal/app"
	"github.com/okian/ecopoints/internal/domain/model"
	"github.com/okian/ecopoints/internal/domain/scoring"
	"github.com/okian/ecopoints/pkg/logger"
	"github.com/okian/ecopoints/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, time.September, 12, 8, 0, 0, 0, time.UTC)

func fixedClock() model.Clock {
	now := epoch
	return func() time.Time {
		t := now
		now = now.Add(time.Minute)
		return t
	}
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(fixedClock()),
		service.WithMetrics(metrics.NewManager()),
	}
	return service.New(append(base, opts...)...)
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with an empty store", t, func() {
		ctx := context.Background()
		svc := newService(service.WithStore(repository.NewMemoryStore()))

		Convey("When starting", func() {
			err := svc.Start(ctx)
			defer svc.Stop(ctx)

			Convey("Then it starts with no households", func() {
				So(err, ShouldBeNil)
				So(svc.Households(), ShouldBeEmpty)
				So(svc.Report().Top, ShouldBeNil)
			})

			Convey("And starting twice is harmless", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a store holding an unsupported snapshot", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		So(store.Save(ctx, repository.Snapshot{Version: 99}), ShouldBeNil)
		svc := newService(service.WithStore(store))

		Convey("When starting", func() {
			err := svc.Start(ctx)
			defer svc.Stop(ctx)

			Convey("Then the session continues with an empty registry", func() {
				So(err, ShouldBeNil)
				So(svc.Households(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a snapshot path holding garbage", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "households.db")
		So(os.WriteFile(path, []byte("definitely not sqlite, only a few bytes of text"), 0o600), ShouldBeNil)
		svc := newService(service.WithSnapshotPath(path))

		Convey("When starting", func() {
			err := svc.Start(ctx)
			defer svc.Stop(ctx)

			Convey("Then the file is moved aside and a fresh session begins", func() {
				So(err, ShouldBeNil)
				So(svc.Households(), ShouldBeEmpty)
				matches, _ := filepath.Glob(path + ".corrupt-*")
				So(len(matches), ShouldEqual, 1)
			})

			Convey("And the fresh store accepts saves", func() {
				_, err := svc.Register(ctx, "h1", "Rossi", "")
				So(err, ShouldBeNil)
				So(svc.Save(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Operations(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(service.WithStore(repository.NewMemoryStore()), service.WithLeaderboardSize(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When registering a household", func() {
			h, err := svc.Register(ctx, "h1", "Rossi", "Via Roma 1")

			Convey("Then it can be found with its join date", func() {
				So(err, ShouldBeNil)
				found, err := svc.Household("h1")
				So(err, ShouldBeNil)
				So(found, ShouldEqual, h)
				So(found.JoinDate(), ShouldEqual, epoch)
			})

			Convey("And registering it again fails", func() {
				_, err := svc.Register(ctx, "h1", "Other", "")
				So(errors.Is(err, model.ErrDuplicateID), ShouldBeTrue)
				found, _ := svc.Household("h1")
				So(found.Name(), ShouldEqual, "Rossi")
			})
		})

		Convey("When logging events", func() {
			_, _ = svc.Register(ctx, "h1", "Rossi", "")
			_, _ = svc.Register(ctx, "h2", "Bianchi", "")
			_, _ = svc.Register(ctx, "h3", "Verdi", "")

			e, err := svc.LogEvent(ctx, "h2", "metal", 2)
			So(err, ShouldBeNil)
			_, err = svc.LogEvent(ctx, "h1", "Furniture", 3)
			So(err, ShouldBeNil)

			Convey("Then points follow the rate table", func() {
				So(e.EcoPoints(), ShouldEqual, 30.0)
				h1, _ := svc.Household("h1")
				So(h1.TotalPoints(), ShouldEqual, 6.0)
			})

			Convey("Then the report reflects every household", func() {
				sum := svc.Report()
				So(sum.Households, ShouldEqual, 3)
				So(sum.Events, ShouldEqual, 2)
				So(sum.TotalWeight, ShouldEqual, 5.0)
				So(sum.Top.ID(), ShouldEqual, "h2")
			})

			Convey("Then the leaderboard is capped", func() {
				board := svc.Leaderboard()
				So(len(board), ShouldEqual, 2)
				So(board[0].HouseholdID, ShouldEqual, "h2")
				So(board[1].HouseholdID, ShouldEqual, "h1")
			})
		})

		Convey("When logging against an unknown household", func() {
			_, err := svc.LogEvent(ctx, "nobody", scoring.Glass, 1)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When logging a non-positive weight", func() {
			_, _ = svc.Register(ctx, "h1", "Rossi", "")
			_, err := svc.LogEvent(ctx, "h1", scoring.Glass, 0)

			So(errors.Is(err, model.ErrInvalidWeight), ShouldBeTrue)
			h, _ := svc.Household("h1")
			So(h.EventCount(), ShouldEqual, 0)
		})

		Convey("Then the rate table's materials are offered", func() {
			So(svc.Materials(), ShouldResemble, []string{"Glass", "Metal", "Paper", "Plastic"})
		})
	})

	Convey("Given a service with a custom rate table", t, func() {
		ctx := context.Background()
		table := scoring.NewTable(scoring.WithRates(map[string]float64{"Glass": 1}), scoring.WithDefaultRate(0.5))
		svc := newService(service.WithStore(repository.NewMemoryStore()), service.WithRateTable(table))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		_, _ = svc.Register(ctx, "h1", "Rossi", "")

		Convey("Then new events use it", func() {
			e, err := svc.LogEvent(ctx, "h1", scoring.Plastic, 4)
			So(err, ShouldBeNil)
			So(e.EcoPoints(), ShouldEqual, 2.0)
		})
	})
}

func TestService_SaveAndReload(t *testing.T) {
	Convey("Given a session backed by files", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "households.db")
		dumpPath := filepath.Join(dir, "households.yaml")
		promPath := filepath.Join(dir, "metrics", "ecopoints.prom")

		svc := newService(
			service.WithSnapshotPath(dbPath),
			service.WithDumpPath(dumpPath),
			service.WithMetricsTextfile(promPath),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Register(ctx, "h1", "Rossi", "Via Roma 1")
		So(err, ShouldBeNil)
		_, err = svc.Register(ctx, "h2", "Bianchi", "Via Po 2")
		So(err, ShouldBeNil)
		_, err = svc.LogEvent(ctx, "h1", scoring.Plastic, 1.25)
		So(err, ShouldBeNil)
		_, err = svc.LogEvent(ctx, "h1", "Cardboard", 0.4)
		So(err, ShouldBeNil)
		before := svc.Households()

		Convey("When saving and starting a new session", func() {
			So(svc.Save(ctx), ShouldBeNil)
			svc.Stop(ctx)

			next := newService(service.WithSnapshotPath(dbPath))
			So(next.Start(ctx), ShouldBeNil)
			defer next.Stop(ctx)
			after := next.Households()

			Convey("Then every household and event is restored", func() {
				So(len(after), ShouldEqual, len(before))
				for i := range before {
					So(after[i].ID(), ShouldEqual, before[i].ID())
					So(after[i].Name(), ShouldEqual, before[i].Name())
					So(after[i].Address(), ShouldEqual, before[i].Address())
					So(after[i].JoinDate().Equal(before[i].JoinDate()), ShouldBeTrue)
					be, ae := before[i].Events(), after[i].Events()
					So(len(ae), ShouldEqual, len(be))
					for j := range be {
						So(ae[j].ID(), ShouldEqual, be[j].ID())
						So(ae[j].MaterialType(), ShouldEqual, be[j].MaterialType())
						So(ae[j].Weight(), ShouldEqual, be[j].Weight())
						So(ae[j].EcoPoints(), ShouldEqual, be[j].EcoPoints())
						So(ae[j].Date().Equal(be[j].Date()), ShouldBeTrue)
					}
				}
			})

			Convey("Then the readable dump and metrics file were written", func() {
				data, err := os.ReadFile(dumpPath)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "name: Rossi")
				prom, err := os.ReadFile(promPath)
				So(err, ShouldBeNil)
				So(string(prom), ShouldContainSubstring, "ecopoints_tracker_households 2")
			})
		})

		Convey("When stopping without saving", func() {
			svc.Stop(ctx)

			next := newService(service.WithSnapshotPath(dbPath))
			So(next.Start(ctx), ShouldBeNil)
			defer next.Stop(ctx)

			Convey("Then nothing was persisted", func() {
				So(next.Households(), ShouldBeEmpty)
			})
		})
	})
}

func TestService_ZonedDatesSurviveReload(t *testing.T) {
	Convey("Given a session whose clock runs in a non-UTC zone", t, func() {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "households.db")
		zoned := epoch.In(time.FixedZone("CEST", 2*60*60))

		svc := service.New(
			service.WithSnapshotPath(dbPath),
			service.WithClock(func() time.Time { return zoned }),
			service.WithMetrics(metrics.NewManager()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.Register(ctx, "h1", "Rossi", "Via Roma 1")
		So(err, ShouldBeNil)
		_, err = svc.LogEvent(ctx, "h1", scoring.Plastic, 1)
		So(err, ShouldBeNil)

		before, _ := svc.Household("h1")
		beforeHousehold := before.String()
		beforeEvent := before.Events()[0].String()
		So(svc.Save(ctx), ShouldBeNil)
		svc.Stop(ctx)

		Convey("When the next session restores it", func() {
			next := newService(service.WithSnapshotPath(dbPath))
			So(next.Start(ctx), ShouldBeNil)
			defer next.Stop(ctx)
			after, err := next.Household("h1")
			So(err, ShouldBeNil)

			Convey("Then dates print exactly as before", func() {
				So(after.String(), ShouldEqual, beforeHousehold)
				So(after.Events()[0].String(), ShouldEqual, beforeEvent)
				So(model.FormatDate(after.JoinDate()), ShouldEqual, model.FormatDate(zoned))
			})
		})
	})
}

func TestService_SaveFailures(t *testing.T) {
	Convey("Given a started session", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		blocker := filepath.Join(dir, "not-a-dir")
		So(os.WriteFile(blocker, []byte("x"), 0o600), ShouldBeNil)

		Convey("When only the readable dump cannot be written", func() {
			svc := newService(
				service.WithSnapshotPath(filepath.Join(dir, "households.db")),
				service.WithDumpPath(filepath.Join(blocker, "households.yaml")),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)
			_, _ = svc.Register(ctx, "h1", "Rossi", "")
			err := svc.Save(ctx)

			Convey("Then the error does not claim the snapshot was lost", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, service.ErrSnapshotNotSaved), ShouldBeFalse)
			})
		})

		Convey("When the snapshot store rejects the write", func() {
			store := repository.NewMemoryStore()
			svc := newService(service.WithStore(store))
			So(svc.Start(ctx), ShouldBeNil)
			So(store.Close(), ShouldBeNil)
			err := svc.Save(ctx)

			Convey("Then the error is marked as an unsaved snapshot", func() {
				So(errors.Is(err, service.ErrSnapshotNotSaved), ShouldBeTrue)
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestService_BeforeStart(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then mutations and saves are refused instead of panicking", func() {
			_, err := svc.Register(ctx, "h1", "Rossi", "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.LogEvent(ctx, "h1", scoring.Glass, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Save(ctx), service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then reads see an empty registry", func() {
			So(svc.Households(), ShouldBeEmpty)
			So(svc.Report().Top, ShouldBeNil)
			So(svc.Leaderboard(), ShouldBeEmpty)
			_, err := svc.Household("h1")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then stopping is harmless", func() {
			So(func() { svc.Stop(ctx) }, ShouldNotPanic)
		})
	})
}
