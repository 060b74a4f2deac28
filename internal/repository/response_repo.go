package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"formbridge/internal/model"
)

// ResponseRepo handles MongoDB operations for responses
type ResponseRepo interface {
	Create(ctx context.Context, response *model.Response) (string, error)
	GetByID(ctx context.Context, id string) (*model.Response, error)
	GetByForm(ctx context.Context, formID string) ([]*model.Response, error)
	CountByFormAndSubmitter(ctx context.Context, formID, submitterID string) (int64, error)
	AppendConversationEntry(ctx context.Context, id string, entry model.ConversationEntry) error
	Delete(ctx context.Context, id string) error
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) Create(ctx context.Context, response *model.Response) (string, error) {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, response)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	response.ID = oid.Hex()
	return response.ID, nil
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.Response, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var response model.Response
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	response.ID = id
	return &response, nil
}

func (r *responseRepo) GetByForm(ctx context.Context, formID string) ([]*model.Response, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"formId": formID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var responses []*model.Response
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepo) CountByFormAndSubmitter(ctx context.Context, formID, submitterID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"formId": formID, "submittedBy": submitterID})
}

// AppendConversationEntry pushes one utterance onto the conversation log
// of an in-progress response.
func (r *responseRepo) AppendConversationEntry(ctx context.Context, id string, entry model.ConversationEntry) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	update := bson.M{"$push": bson.M{"conversationHistory": entry}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *responseRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
