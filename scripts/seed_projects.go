package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/semlayer/semlayer/core/parser"
)

// Copies the inline projects of a semlayer.yaml into the MongoDB collection
// read by the mongodb project store.
func main() {
	var (
		file       string
		uri        string
		database   string
		collection string
	)
	flag.StringVar(&file, "file", "semlayer.yaml", "Configuration file listing projects.projects")
	flag.StringVar(&uri, "uri", "mongodb://localhost:27017", "MongoDB connection string")
	flag.StringVar(&database, "db", "semlayer", "Database name")
	flag.StringVar(&collection, "collection", "projects", "Collection name")
	flag.Parse()

	content, err := os.ReadFile(file)
	if err != nil {
		panic(fmt.Errorf("read failed: %w", err))
	}
	cfg, err := parser.ParseYAML(content)
	if err != nil {
		panic(fmt.Errorf("parse failed: %w", err))
	}
	if len(cfg.Projects.Projects) == 0 {
		fmt.Printf("no projects in %s\n", file)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		panic(fmt.Errorf("connect failed: %w", err))
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	coll := client.Database(database).Collection(collection)

	upserted := 0
	for _, project := range cfg.Projects.Projects {
		res, err := coll.ReplaceOne(ctx,
			bson.D{{Key: "project_uuid", Value: project.UUID}},
			project,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			panic(fmt.Errorf("upsert of %s failed: %w", project.UUID, err))
		}
		if res.UpsertedCount > 0 || res.ModifiedCount > 0 {
			upserted++
		}
	}

	fmt.Printf("seeded %d of %d project(s) into %s.%s\n", upserted, len(cfg.Projects.Projects), database, collection)
	fmt.Printf("example project for queries: %s\n", cfg.Projects.Projects[0].UUID)
}
