package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/nervoshalving/countdown-service/entities"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type KafkaClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

type TargetMessage struct {
	TargetEpoch uint64    `json:"targetEpoch"`
	TargetTime  time.Time `json:"targetTime"`
	BlockNumber uint64    `json:"blockNumber"`
	EpochNumber uint64    `json:"epochNumber"`
	EpochIndex  uint64    `json:"epochIndex"`
	EpochLength uint64    `json:"epochLength"`
	ProjectedAt time.Time `json:"projectedAt"`
}

// Client publishes every recomputed halving target. Produce is asynchronous, failures are only logged.
type Client struct {
	kcl    KafkaClient
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewClient(kafkaClient KafkaClient, logger *zap.SugaredLogger) *Client {
	return &Client{
		kcl:    kafkaClient,
		logger: logger,
		now:    time.Now,
	}
}

func (kc *Client) TargetUpdated(snapshot entities.ChainSnapshot, target entities.HalvingTarget) {
	record, err := kc.createTargetRecord(snapshot, target)
	if err != nil {
		kc.logger.Errorw("Error while creating target record", "error", err)
		return
	}

	kc.kcl.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			kc.logger.Errorw("Error while producing target record", "targetEpoch", target.TargetEpoch, "error", err)
		}
	})
}

func (kc *Client) createTargetRecord(snapshot entities.ChainSnapshot, target entities.HalvingTarget) (*kgo.Record, error) {
	payload, err := json.Marshal(TargetMessage{
		TargetEpoch: target.TargetEpoch,
		TargetTime:  target.TargetTime.UTC(),
		BlockNumber: snapshot.BlockNumber,
		EpochNumber: snapshot.Epoch.Number,
		EpochIndex:  snapshot.Epoch.Index,
		EpochLength: snapshot.Epoch.Length,
		ProjectedAt: kc.now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshalling target to json")
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, target.TargetEpoch)

	return &kgo.Record{
		Key:   key,
		Value: payload,
	}, nil
}
