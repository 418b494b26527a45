package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/config"
	"dorm-electricity/internal/model"
	"dorm-electricity/internal/predict"
	"dorm-electricity/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "query":
		cmdQuery(os.Args[2:])
	case "predict":
		cmdPredict(os.Args[2:])
	case "buildings":
		cmdBuildings(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli query --config config.yaml --campus north --building 12 --room A544")
	fmt.Println("  cli predict --config config.yaml --campus north --building 12 --room A544")
	fmt.Println("  cli buildings --config config.yaml --campus north")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - query fetches the live balance straight from the campus API")
	fmt.Println("  - predict reads stored history from the database, without polling")
}

func newCampusClient(cfgPath string) *campus.Client {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	campuses := make([]campus.CampusInfo, len(cfg.CampusAPI.Campuses))
	for i, c := range cfg.CampusAPI.Campuses {
		campuses[i] = campus.CampusInfo{Name: c.Name, ID: c.ID, Area: c.Area}
	}
	return campus.NewClient(cfg.CampusAPI.BaseURL, campuses, nil, log)
}

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	campusName := fs.String("campus", "", "Campus name as configured")
	building := fs.String("building", "", "Building name")
	room := fs.String("room", "", "Room number")
	_ = fs.Parse(args)

	if *campusName == "" || *building == "" || *room == "" {
		fmt.Println("--campus, --building and --room are required")
		os.Exit(2)
	}

	client := newCampusClient(*cfgPath)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := model.RoomKey{Campus: *campusName, Building: *building, Room: *room}
	reading, err := client.FetchReading(ctx, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %.2f kWh at %s\n", key.String(), reading.Value, reading.Time.Format(time.RFC3339))
}

func cmdPredict(args []string) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	campusName := fs.String("campus", "", "Campus name as configured")
	building := fs.String("building", "", "Building name")
	room := fs.String("room", "", "Room number")
	_ = fs.Parse(args)

	if *campusName == "" || *building == "" || *room == "" {
		fmt.Println("--campus, --building and --room are required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer st.Close()

	key := model.RoomKey{Campus: *campusName, Building: *building, Room: *room}
	series, err := st.Series(ctx, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(series) == 0 {
		fmt.Printf("%s: no readings recorded\n", key.String())
		return
	}

	last := series[len(series)-1]
	fmt.Printf("%s: %.2f kWh as of %s (%d readings)\n",
		key.String(), last.Value, last.Time.Format(time.RFC3339), len(series))

	res := predict.Depletion(series)
	if res == nil {
		fmt.Println("no depletion predictable: balance flat, rising, or too few readings")
		return
	}
	fmt.Printf("discharge rate: %.2f kWh/h\n", -res.SlopePerSecond*3600)
	fmt.Printf("estimated depletion: %s\n", res.ExhaustionTime.In(cfg.Location()).Format(time.RFC3339))
}

func cmdBuildings(args []string) {
	fs := flag.NewFlagSet("buildings", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "Path to YAML config")
	campusName := fs.String("campus", "", "Campus name as configured")
	_ = fs.Parse(args)

	if *campusName == "" {
		fmt.Println("--campus is required")
		os.Exit(2)
	}

	client := newCampusClient(*cfgPath)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	buildings, err := client.Buildings(ctx, *campusName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, b := range buildings {
		fmt.Println(b.Name)
	}
}
