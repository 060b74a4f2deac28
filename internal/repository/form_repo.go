package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"formbridge/internal/model"
)

// ErrVersionMismatch is returned when a replace loses an optimistic
// concurrency check.
var ErrVersionMismatch = errors.New("form version mismatch")

// FormRepo handles MongoDB operations for forms
type FormRepo interface {
	Create(ctx context.Context, form *model.Form) (string, error)
	GetByID(ctx context.Context, id string) (*model.Form, error)
	GetByCreator(ctx context.Context, creatorID string) ([]*model.Form, error)
	Replace(ctx context.Context, form *model.Form) error
	SetPublished(ctx context.Context, id string, publishedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type formRepo struct {
	collection *mongo.Collection
}

// NewFormRepo creates a new form repository
func NewFormRepo(db *mongo.Database) FormRepo {
	return &formRepo{
		collection: db.Collection("forms"),
	}
}

func (r *formRepo) Create(ctx context.Context, form *model.Form) (string, error) {
	form.CreatedAt = time.Now()
	form.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, form)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	form.ID = oid.Hex()
	return form.ID, nil
}

func (r *formRepo) GetByID(ctx context.Context, id string) (*model.Form, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var form model.Form
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&form)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	form.ID = id
	return &form, nil
}

func (r *formRepo) GetByCreator(ctx context.Context, creatorID string) ([]*model.Form, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"creator": creatorID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var forms []*model.Form
	if err := cursor.All(ctx, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

// Replace swaps the whole document, guarded by the version counter.
// The stored version is bumped; a filter miss on an existing form means
// a concurrent writer won.
func (r *formRepo) Replace(ctx context.Context, form *model.Form) error {
	oid, err := primitive.ObjectIDFromHex(form.ID)
	if err != nil {
		return err
	}

	expected := form.Version
	form.Version = expected + 1
	form.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": oid, "version": expected}, replacementDoc(form))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		form.Version = expected
		return ErrVersionMismatch
	}
	return nil
}

// replacementDoc clears the hex ID so the marshalled replacement
// carries no _id field. The stored _id is an ObjectID; sending the id
// back as a string would alter the immutable _id and the server would
// reject the write.
func replacementDoc(form *model.Form) *model.Form {
	doc := *form
	doc.ID = ""
	return &doc
}

func (r *formRepo) SetPublished(ctx context.Context, id string, publishedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":      model.FormPublished,
		"publishedAt": publishedAt,
		"updatedAt":   time.Now(),
	}}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *formRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
