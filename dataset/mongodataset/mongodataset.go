/*
Package mongodataset loads sample datasets from a MongoDB collection.
Samples are stored as documents with an "x" array of feature values
and an integer "y" class label.
*/
package mongodataset

import (
	"context"
	"fmt"

	"github.com/JonathanWenger/streambasedal/dataset"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

type sampleDoc struct {
	X []float64 `bson:"x"`
	Y int       `bson:"y"`
}

/*
Open reads every sample document of the given collection on the
session's default database and returns an in-memory dataset
delivering them in the order given by opts.
*/
func Open(ctx context.Context, session *mgo.Session, collection string, opts *dataset.Options) (*dataset.Dataset, error) {
	iter := session.DB("").C(collection).Find(nil).Iter()
	defer iter.Close()
	var samples []dataset.Sample
	var doc sampleDoc
	for iter.Next(&doc) {
		if doc.Y < 0 {
			return nil, fmt.Errorf("document %d of collection %s has negative class label %d", len(samples)+1, collection, doc.Y)
		}
		if len(samples) > 0 && len(doc.X) != len(samples[0].X) {
			return nil, fmt.Errorf("document %d of collection %s has %d features, expected %d", len(samples)+1, collection, len(doc.X), len(samples[0].X))
		}
		samples = append(samples, dataset.Sample{X: append([]float64(nil), doc.X...), Y: doc.Y})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("reading collection %s: %v", collection, err)
	}
	return dataset.New(samples, opts), nil
}

/*
Write stores the given samples as documents on the collection,
returning the number written.
*/
func Write(ctx context.Context, session *mgo.Session, collection string, samples []dataset.Sample) (int, error) {
	c := session.DB("").C(collection)
	for i, s := range samples {
		if err := c.Insert(bson.M{"x": s.X, "y": s.Y}); err != nil {
			return i, fmt.Errorf("writing sample %d to collection %s: %v", i+1, collection, err)
		}
	}
	return len(samples), nil
}
