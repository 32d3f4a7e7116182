package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"moonmining/internal/adapters/catalogue"
	"moonmining/internal/core/version"
	"moonmining/internal/modkit"
	"moonmining/internal/modkit/module"
	"moonmining/internal/modkit/repokit"
	"moonmining/internal/platform/config"
	"moonmining/internal/platform/logger"
	"moonmining/internal/platform/store"
	"moonmining/internal/platform/telemetry"

	extractionsdom "moonmining/internal/services/extractions/domain"
	extractionsmod "moonmining/internal/services/extractions/module"
	extractionsrepo "moonmining/internal/services/extractions/repo"
	moonsmod "moonmining/internal/services/moons/module"
	moonsrepo "moonmining/internal/services/moons/repo"
	notificationsmod "moonmining/internal/services/notifications/module"
	notificationsrepo "moonmining/internal/services/notifications/repo"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func parseOwners(csv string) ([]int64, error) {
	var out []int64
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func migrate(ctx context.Context, q repokit.Queryer) error {
	for _, m := range []func(context.Context, repokit.Queryer) error{
		catalogue.Migrate,
		notificationsrepo.Migrate,
		moonsrepo.Migrate,
		extractionsrepo.Migrate,
	} {
		if err := m(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(sums []extractionsdom.OwnerSummary) {
	p := message.NewPrinter(language.English)
	for _, s := range sums {
		t := s.Totals()
		p.Printf("owner %d: %d refineries, %d events (%d malformed, %d ignored, %d duplicates), "+
			"%d created, %d updated, %d unchanged, %d without start, %d failed\n",
			s.OwnerID, len(s.Refineries), t.Events, t.Malformed, t.Ignored, t.Duplicates,
			t.Created, t.Updated, t.Unchanged, t.Degraded, len(s.Failed))
	}
}

func main() { os.Exit(run()) }

// run returns the process exit code; deferred cleanup always runs before main exits
func run() int {
	logger.Init(logger.FromEnv())
	l := logger.Get()
	root := config.New()

	var (
		fOwners    = flag.String("owners", "", "comma separated owner ids to process (default CORE_EXTRACTIONS_OWNERS)")
		fDump      = flag.String("dump", "", "YAML notifications dump to store before processing")
		fCatalogue = flag.String("catalogue", "", "YAML ore types and prices to store before processing")
		fRecompute = flag.Bool("recompute", false, "recompute the value of every stored extraction and exit")
		fMigrate   = flag.Bool("migrate", false, "apply schemas before running")
		fVersion   = flag.Bool("version", false, "print the build and exit")
	)
	flag.Parse()

	bi := version.Info("moonmining-extractions")
	if *fVersion {
		message.NewPrinter(language.English).Printf("%s %s (%s, %s)\n", bi.Service, bi.Version, bi.Commit, bi.Date)
		return 0
	}
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.FromConfig(root))
	if err != nil {
		l.Error().Err(err).Msg("telemetry.Init failed")
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to flush traces")
		}
	}()

	stCfg := store.FromConfig(root)
	if !stCfg.PG.Enabled {
		l.Error().Msg("SERVICE_PGSQL_DBURL is required")
		return 2
	}
	st, err := store.Open(ctx, stCfg, store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st)
	deps := modkit.FromStore(st, root)

	if *fMigrate {
		if err := migrate(ctx, deps.PG); err != nil {
			l.Error().Err(err).Msg("migrate failed")
			return 1
		}
		l.Info().Msg("schemas applied")
	}

	pg := catalogue.NewPG(deps.PG)
	cat := catalogue.NewCached(pg, deps.RDS, catalogue.CacheFromConfig(root))

	if *fCatalogue != "" {
		c, err := readCatalogue(*fCatalogue)
		if err != nil {
			l.Error().Err(err).Msg("reading catalogue failed")
			return 2
		}
		n, err := importCatalogue(ctx, pg, cat, c)
		if err != nil {
			l.Error().Err(err).Msg("storing catalogue failed")
			return 1
		}
		l.Info().Int("ore_types", len(c.OreTypes)).Int("prices", n).Msg("catalogue stored")
	}

	nm := notificationsmod.Register(deps)
	mm := moonsmod.Register(deps, cat)
	nPorts := module.MustPortsOf[notificationsmod.Ports](nm)
	mPorts := module.MustPortsOf[moonsmod.Ports](mm)
	em := extractionsmod.Register(deps, extractionsmod.Collaborators{
		Catalogue: cat,
		Source:    nPorts.Source,
		Resolver:  mPorts.Resolver,
		Products:  mPorts.Products,
	})
	ePorts := module.MustPortsOf[extractionsmod.Ports](em)

	if *fRecompute {
		n, err := ePorts.Runner.RecomputeAll(ctx)
		if err != nil {
			l.Error().Err(err).Int("visited", n).Msg("recompute failed")
			return 1
		}
		message.NewPrinter(language.English).Printf("recomputed %d extractions\n", n)
		return 0
	}

	owners, err := parseOwners(*fOwners)
	if err != nil {
		l.Error().Err(err).Msg("bad -owners")
		return 2
	}
	if len(owners) == 0 {
		owners = root.Prefix("CORE_EXTRACTIONS_").MayInt64s("OWNERS", nil)
	}

	if *fDump != "" {
		dump, err := readDump(*fDump)
		if err != nil {
			l.Error().Err(err).Msg("reading dump failed")
			return 2
		}
		for ownerID, raws := range dump {
			n, err := nPorts.Store.StoreNotifications(ctx, ownerID, raws)
			if err != nil {
				l.Error().Err(err).Int64("owner_id", ownerID).Msg("storing notifications failed")
				return 1
			}
			l.Info().Int64("owner_id", ownerID).Int("new", n).Int("read", len(raws)).Msg("notifications stored")
			if *fOwners == "" && !containsOwner(owners, ownerID) {
				owners = append(owners, ownerID)
			}
		}
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	}

	if len(owners) == 0 {
		l.Error().Msg("no owners to process: pass -owners, -dump or set CORE_EXTRACTIONS_OWNERS")
		return 2
	}

	sums, err := ePorts.Runner.RunOwners(ctx, owners)
	printSummary(sums)
	if err != nil {
		l.Error().Err(err).Msg("run failed")
		return 1
	}
	return 0
}

func containsOwner(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
