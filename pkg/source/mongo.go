package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// ConnectMongo connects to uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	klog.V(2).InfoS("Connected to MongoDB")
	return client, nil
}

// NewBucket returns the GridFS bucket name of database db. An empty name
// selects the default "fs" bucket.
func NewBucket(client *mongo.Client, db, name string) *mongo.GridFSBucket {
	opts := options.GridFSBucket()
	if name != "" {
		opts.SetName(name)
	}
	return client.Database(db).GridFSBucket(opts)
}

// GridFS streams a file stored in a MongoDB GridFS bucket. Every Open issues
// a new download, which is exactly what the tee cache avoids.
type GridFS struct {
	Bucket *mongo.GridFSBucket
	Name   string
}

func (g GridFS) Open(ctx context.Context) (io.ReadCloser, error) {
	stream, err := g.Bucket.OpenDownloadStreamByName(ctx, g.Name)
	if err != nil {
		return nil, errs.IO("download", g.Name, err)
	}
	return stream, nil
}

// UploadGridFS stores r under name, used to seed buckets from local files.
func UploadGridFS(ctx context.Context, bucket *mongo.GridFSBucket, name string, r io.Reader) (bson.ObjectID, error) {
	id, err := bucket.UploadFromStream(ctx, name, r)
	if err != nil {
		return bson.ObjectID{}, errs.IO("upload", name, err)
	}
	return id, nil
}

// MongoPlayers reads players from a collection through a driver cursor.
type MongoPlayers struct {
	Collection *mongo.Collection
}

func (m MongoPlayers) Players(ctx context.Context) (PlayerCursor, error) {
	cur, err := m.Collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find players: %w", err)
	}
	return &mongoCursor{ctx: ctx, cur: cur}, nil
}

type mongoCursor struct {
	ctx     context.Context
	cur     *mongo.Cursor
	current Player
	err     error
}

func (c *mongoCursor) Next() bool {
	if c.err != nil || !c.cur.Next(c.ctx) {
		return false
	}
	var p Player
	if err := c.cur.Decode(&p); err != nil {
		c.err = fmt.Errorf("decode player: %w", err)
		return false
	}
	c.current = p
	return true
}

func (c *mongoCursor) Player() Player { return c.current }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close() error {
	return c.cur.Close(context.Background())
}
