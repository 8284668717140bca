package service

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/repository/specification"
	"github.com/lxhmx/text2sql/internal/repository/unitofwork"
	"github.com/lxhmx/text2sql/pkg/events"
	pktNats "github.com/lxhmx/text2sql/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	trainService   ITrainService
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	trainService ITrainService,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		trainService:   trainService,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TrainFileMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal train message: %v", err)
		msg.Ack() // invalid payloads retry forever otherwise
		return
	}

	log.Printf("[INFO] Processing training for file %s", payload.FileId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.TrainingFileRepository()

	file, err := repo.FindOne(ctx, specification.ByID{ID: payload.FileId})
	if err != nil {
		log.Printf("[ERROR] Failed to load training file %s: %v", payload.FileId, err)
		msg.Nack()
		return
	}
	if file == nil {
		log.Printf("[WARN] Training file %s not found, probably deleted", payload.FileId)
		msg.Ack()
		return
	}

	var count int
	var trainErr error
	content, err := os.ReadFile(file.FilePath)
	if err != nil {
		trainErr = err
	} else {
		count, trainErr = cs.trainService.TrainFile(ctx, content, file.FileName, file.TrainType)
	}

	now := time.Now()
	file.UpdatedAt = &now
	file.TrainCount = count
	switch {
	case trainErr != nil:
		file.TrainStatus = constant.TrainStatusFailed
		file.TrainResult = trainErr.Error()
	case count == 0:
		// Dedup hit: the knowledge is already in the model.
		file.TrainStatus = constant.TrainStatusSuccess
		file.TrainResult = "already trained, skipped"
	default:
		file.TrainStatus = constant.TrainStatusSuccess
		file.TrainResult = "ok"
	}

	if err := repo.Update(ctx, file); err != nil {
		log.Printf("[ERROR] Failed to update training file %s: %v", file.Id, err)
		msg.Nack()
		return
	}

	if trainErr != nil {
		log.Printf("[ERROR] Training failed for %s: %v", file.FileName, trainErr)
		cs.publishEvent(ctx, events.TrainingFailed(file.Id.String(), file.FileName, trainErr.Error()))
	} else {
		log.Printf("[INFO] Trained %s: %d items", file.FileName, count)
		cs.publishEvent(ctx, events.TrainingCompleted(file.Id.String(), file.FileName, count))
	}

	// Terminal either way: the outcome lives on the file row, retrying the
	// message would just re-train.
	msg.Ack()
}

func (cs *consumerService) publishEvent(ctx context.Context, event events.Event) {
	if err := cs.eventPublisher.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", event.EventType(), err)
	}
}
