package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection    = "users"
	productsCollection = "products"
	ordersCollection   = "orders"

	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	codeNamespaceExists = 48
)

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

type collectionSetup struct {
	name    string
	schema  bson.M
	indexes []mongo.IndexModel
}

var stringType = bson.M{"bsonType": "string"}
var numberType = bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0}

func collectionSetups() []collectionSetup {
	return []collectionSetup{
		{
			name: usersCollection,
			schema: bson.M{
				"bsonType": "object",
				"required": bson.A{"name", "email", "password", "role", "createdAt"},
				"properties": bson.M{
					"name":      stringType,
					"email":     stringType,
					"password":  stringType,
					"role":      bson.M{"enum": bson.A{RoleAdmin, RoleCustomer}},
					"createdAt": bson.M{"bsonType": "date"},
				},
			},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			name: productsCollection,
			schema: bson.M{
				"bsonType": "object",
				"required": bson.A{"name", "description", "detailedDescription", "mainImage", "subImages", "price", "createdAt"},
				"properties": bson.M{
					"name":                stringType,
					"description":         stringType,
					"detailedDescription": stringType,
					"mainImage":           stringType,
					"subImages":           bson.M{"bsonType": "array", "minItems": minSubImages, "items": stringType},
					"price":               numberType,
					"createdAt":           bson.M{"bsonType": "date"},
				},
			},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			},
		},
		{
			name: ordersCollection,
			schema: bson.M{
				"bsonType": "object",
				"required": bson.A{
					"productId", "productName", "price", "customerName", "customerEmail",
					"phone", "address", "pincode", "city", "taluka", "status", "createdAt",
				},
				"properties": bson.M{
					"productId":     stringType,
					"productName":   stringType,
					"price":         numberType,
					"customerName":  stringType,
					"customerEmail": stringType,
					"phone":         stringType,
					"address":       stringType,
					"pincode":       stringType,
					"city":          stringType,
					"taluka":        stringType,
					"status":        stringType,
					"createdAt":     bson.M{"bsonType": "date"},
				},
			},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}
}

// ensureCollections creates the collections with their validators and
// indexes. Existing collections keep their validator.
func ensureCollections(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	for _, setup := range collectionSetups() {
		opts := options.CreateCollection().SetValidator(bson.M{"$jsonSchema": setup.schema})
		err := db.CreateCollection(ctx, setup.name, opts)
		var cmdErr mongo.CommandError
		switch {
		case err == nil:
			log.Info("collection created", zap.String("collection", setup.name))
		case errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists:
			log.Debug("collection exists", zap.String("collection", setup.name))
		default:
			return fmt.Errorf("create collection %s: %w", setup.name, err)
		}

		if len(setup.indexes) == 0 {
			continue
		}
		if _, err := db.Collection(setup.name).Indexes().CreateMany(ctx, setup.indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", setup.name, err)
		}
	}
	return nil
}
