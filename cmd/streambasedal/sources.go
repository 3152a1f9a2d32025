package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonathanWenger/streambasedal/config"
	"github.com/JonathanWenger/streambasedal/dataset"
	"github.com/JonathanWenger/streambasedal/dataset/csv"
	"github.com/JonathanWenger/streambasedal/dataset/mongodataset"
	"github.com/JonathanWenger/streambasedal/dataset/sqldataset"
	"github.com/JonathanWenger/streambasedal/dataset/sqldataset/pgadapter"
	"github.com/JonathanWenger/streambasedal/dataset/sqldataset/sqlite3adapter"
	"github.com/JonathanWenger/streambasedal/queue/redisq"
	"github.com/edaniels/golog"
	mgo "gopkg.in/mgo.v2"
	redis "gopkg.in/redis.v5"
)

// samplesTable is the table or collection samples are read from on
// SQL and MongoDB backends.
const samplesTable = "samples"

// defaultQueueKey is the redis list samples are consumed from when
// the redis URL does not name one with a key query parameter.
const defaultQueueKey = "streambasedal:samples"

type streams struct {
	train   dataset.Stream
	test    dataset.Stream
	closers []func() error
}

func (s *streams) Close() {
	for _, c := range s.closers {
		c()
	}
}

// FeatureDim returns the feature dimension of whichever stream is
// available.
func (s *streams) FeatureDim() int {
	if s.train != nil && s.train.FeatureDim() > 0 {
		return s.train.FeatureDim()
	}
	if s.test != nil {
		return s.test.FeatureDim()
	}
	return 0
}

func openStreams(ctx context.Context, rcc *rootCmdConfig, hp *config.Hyperparameters, logger golog.Logger) (*streams, error) {
	s := &streams{}
	if rcc.training {
		opts := &dataset.Options{Random: hp.Random, SortData: hp.SortData, Seed: hp.UserSeedConfig}
		train, err := openStream(ctx, s, hp.TrainData, hp.TrainLabels, opts, hp.Iterative, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening training stream: %v", err)
		}
		s.train = train
	}
	if rcc.testing {
		// Test streams are always loaded eagerly in delivery
		// order: the metrics pass rewinds them.
		test, err := openStream(ctx, s, hp.TestData, hp.TestLabels, nil, false, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening test stream: %v", err)
		}
		s.test = test
	}
	return s, nil
}

/*
openStream opens a sample stream from its configured location:
a redis URL for a live queue, a MongoDB or PostgreSQL URL, an SQLite3
file (.db) or a pair of CSV files (data and labels).
*/
func openStream(ctx context.Context, s *streams, dataPath, labelPath string, opts *dataset.Options, iterative bool, logger golog.Logger) (dataset.Stream, error) {
	switch {
	case strings.HasPrefix(dataPath, "redis://"):
		logger.Infof("consuming samples from redis queue at %s", dataPath)
		return openRedisStream(s, dataPath)
	case strings.HasPrefix(dataPath, "mongodb://"):
		logger.Infof("loading samples from MongoDB at %s", dataPath)
		session, err := mgo.Dial(dataPath)
		if err != nil {
			return nil, fmt.Errorf("connecting to MongoDB at %s: %v", dataPath, err)
		}
		s.closers = append(s.closers, func() error { session.Close(); return nil })
		return mongodataset.Open(ctx, session, samplesTable, opts)
	case strings.HasPrefix(dataPath, "postgresql://"):
		logger.Infof("loading samples from PostgreSQL at %s", dataPath)
		adapter, err := pgadapter.New(dataPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, adapter.Close)
		return sqldataset.Open(ctx, adapter, samplesTable, opts)
	case strings.HasSuffix(dataPath, ".db"):
		logger.Infof("loading samples from SQLite3 file %s", dataPath)
		adapter, err := sqlite3adapter.New(dataPath, 0)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, adapter.Close)
		return sqldataset.Open(ctx, adapter, samplesTable, opts)
	case iterative:
		logger.Infof("streaming samples from CSV files %s and %s", dataPath, labelPath)
		stream, err := csv.Open(dataPath, labelPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, stream.Close)
		return stream, nil
	default:
		logger.Infof("loading samples from CSV files %s and %s", dataPath, labelPath)
		return csv.Load(dataPath, labelPath, opts)
	}
}

/*
openRedisStream parses a redis URL of the form
redis://[:password@]host:port/db?key=listname and returns a queue
stream popping samples from that list.
*/
func openRedisStream(s *streams, rawURL string) (dataset.Stream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL %s: %v", rawURL, err)
	}
	key := u.Query().Get("key")
	if key == "" {
		key = defaultQueueKey
	}
	redisOpts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			redisOpts.Password = password
		}
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL %s: invalid database number %q", rawURL, db)
		}
		redisOpts.DB = n
	}
	client := redis.NewClient(redisOpts)
	s.closers = append(s.closers, client.Close)
	return redisq.New(client, key, 0, 0), nil
}
