package projects

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
)

// MongoDBStore reads projects from a MongoDB collection
type MongoDBStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// mongoURI appends options to the connection string and returns the
// database named in its path, if any.
func mongoURI(connectionString string, options map[string]string) (string, string, error) {
	if !strings.HasPrefix(connectionString, "mongodb://") && !strings.HasPrefix(connectionString, "mongodb+srv://") {
		return connectionString, "", nil
	}
	parsedURL, err := url.Parse(connectionString)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse mongodb connection string: %w", err)
	}
	if len(options) > 0 {
		query := parsedURL.Query()
		for key, value := range options {
			query.Set(key, value)
		}
		parsedURL.RawQuery = query.Encode()
	}
	return parsedURL.String(), strings.TrimPrefix(parsedURL.Path, "/"), nil
}

// NewMongoDBStore connects and pings MongoDB. database falls back to the
// database in the connection string.
func NewMongoDBStore(ctx context.Context, connectionString string, options map[string]string, database, collection string) (*MongoDBStore, error) {
	log := logging.New("projects:mongodb")
	log.Debugf("Opening MongoDB connection")

	uri, uriDatabase, err := mongoURI(connectionString, options)
	if err != nil {
		return nil, err
	}
	if database == "" {
		database = uriDatabase
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb project store requires a database")
	}

	client, err := mongo.Connect(mongoOptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	log.Debugf("Testing connection with ping")
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(pingCtx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Debugf("MongoDB connection opened successfully")
	return &MongoDBStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// Get loads one project
func (m *MongoDBStore) Get(ctx context.Context, projectUUID string) (*domain.Project, error) {
	var project domain.Project
	err := m.collection.FindOne(ctx, bson.D{{Key: "project_uuid", Value: projectUUID}}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, projectNotFound(projectUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &project, nil
}

// List returns the organization's projects sorted by name
func (m *MongoDBStore) List(ctx context.Context, organizationUUID string) ([]domain.ProjectSummary, error) {
	opts := mongoOptions.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetProjection(bson.D{{Key: "project_uuid", Value: 1}, {Key: "organization_uuid", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.D{{Key: "organization_uuid", Value: organizationUUID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer cursor.Close(ctx)

	out := []domain.ProjectSummary{}
	for cursor.Next(ctx) {
		var p domain.Project
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("mongodb decode failed: %w", err)
		}
		out = append(out, p.Summary())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor error: %w", err)
	}
	return out, nil
}

// Close disconnects the client
func (m *MongoDBStore) Close() error {
	if m.client == nil {
		return nil
	}
	log := logging.New("projects:mongodb")
	log.Debugf("Closing MongoDB connection")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		log.Errorf("Error closing MongoDB connection: %v", err)
		return err
	}
	return nil
}
