package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"trivia-duel-service/internal/domain"
)

// Connect opens a client and pings the server.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type questionDocument struct {
	Index        int      `bson:"index"`
	Text         string   `bson:"text"`
	Options      []string `bson:"options"`
	CorrectIndex int      `bson:"correctIndex"`
	Topic        string   `bson:"topic"`
	Difficulty   string   `bson:"difficulty"`
}

type duelDocument struct {
	ID            string             `bson:"_id"`
	Player1ID     string             `bson:"player1Id"`
	Player2ID     string             `bson:"player2Id"`
	QuestionCount int                `bson:"questionCount"`
	Questions     []questionDocument `bson:"questions"`
	Player1Score  *int               `bson:"player1Score"`
	Player2Score  *int               `bson:"player2Score"`
	CreatedAt     time.Time          `bson:"createdAt"`
	FinishedAt    *time.Time         `bson:"finishedAt"`
	Topic         string             `bson:"topic"`
	Difficulty    string             `bson:"difficulty"`
}

// DuelStore keeps each duel as one document with its questions embedded.
type DuelStore struct {
	collection *mongo.Collection
}

func NewDuelStore(client *mongo.Client, database string) *DuelStore {
	if database == "" {
		database = "trivia"
	}
	return &DuelStore{collection: client.Database(database).Collection("duels")}
}

func (s *DuelStore) CreateDuel(ctx context.Context, duel domain.Duel) error {
	doc := duelDocument{
		ID:            duel.ID,
		Player1ID:     duel.Player1ID,
		Player2ID:     duel.Player2ID,
		QuestionCount: duel.QuestionCount,
		Questions:     make([]questionDocument, 0, len(duel.Questions)),
		Player1Score:  duel.Player1Score,
		Player2Score:  duel.Player2Score,
		CreatedAt:     duel.CreatedAt,
		FinishedAt:    duel.FinishedAt,
		Topic:         duel.Topic,
		Difficulty:    duel.Difficulty,
	}
	for _, q := range duel.Questions {
		doc.Questions = append(doc.Questions, questionDocument{
			Index:        q.Index,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Topic:        q.Topic,
			Difficulty:   q.Difficulty,
		})
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert duel: %w", err)
	}
	return nil
}

func (s *DuelStore) Duel(ctx context.Context, id string) (domain.Duel, error) {
	var doc duelDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	if err != nil {
		return domain.Duel{}, fmt.Errorf("find duel: %w", err)
	}

	duel := domain.Duel{
		ID:            doc.ID,
		Player1ID:     doc.Player1ID,
		Player2ID:     doc.Player2ID,
		QuestionCount: doc.QuestionCount,
		Questions:     make([]domain.DuelQuestion, 0, len(doc.Questions)),
		Player1Score:  doc.Player1Score,
		Player2Score:  doc.Player2Score,
		CreatedAt:     doc.CreatedAt.UTC(),
		Topic:         doc.Topic,
		Difficulty:    doc.Difficulty,
	}
	if doc.FinishedAt != nil {
		t := doc.FinishedAt.UTC()
		duel.FinishedAt = &t
	}
	for _, q := range doc.Questions {
		duel.Questions = append(duel.Questions, domain.DuelQuestion{
			Index: q.Index,
			Question: domain.Question{
				Text:         q.Text,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
				Topic:        q.Topic,
				Difficulty:   q.Difficulty,
			},
		})
	}
	return duel, nil
}

func (s *DuelStore) SetScore(ctx context.Context, id string, slot, score int) (bool, error) {
	field := "player1Score"
	if slot == 2 {
		field = "player2Score"
	}
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, field: nil},
		bson.M{"$set": bson.M{field: score}})
	if err != nil {
		return false, fmt.Errorf("set duel score: %w", err)
	}
	return s.applied(ctx, id, res)
}

func (s *DuelStore) MarkFinished(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{
			"_id":          id,
			"finishedAt":   nil,
			"player1Score": bson.M{"$ne": nil},
			"player2Score": bson.M{"$ne": nil},
		},
		bson.M{"$set": bson.M{"finishedAt": at}})
	if err != nil {
		return false, fmt.Errorf("finish duel: %w", err)
	}
	return s.applied(ctx, id, res)
}

func (s *DuelStore) applied(ctx context.Context, id string, res *mongo.UpdateResult) (bool, error) {
	if res.MatchedCount > 0 {
		return true, nil
	}
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count duel: %w", err)
	}
	if n == 0 {
		return false, domain.ErrDuelNotFound
	}
	return false, nil
}
