package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thereayou/chatify/internal/models"
)

type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	rooms  *mongo.Collection
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type roomDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Key       string             `bson:"key"`
	CreatedBy string             `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
	Members   []string           `bson:"members"`
}

// ConnectMongo подключается к MongoDB и проверяет соединение
func ConnectMongo(ctx context.Context, uri, dbName, usersCol, roomsCol string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoStore{
		client: client,
		users:  db.Collection(usersCol),
		rooms:  db.Collection(roomsCol),
	}, nil
}

func (s *MongoStore) FindUser(ctx context.Context, filter UserFilter) (*models.User, error) {
	query := bson.M{}
	switch {
	case filter.ID != "":
		oid, err := primitive.ObjectIDFromHex(filter.ID)
		if err != nil {
			// Некорректный id — запись не может существовать
			return nil, nil
		}
		query["_id"] = oid
	case filter.Username != "":
		query["username"] = filter.Username
	case filter.Email != "":
		query["email"] = filter.Email
	default:
		return nil, nil
	}

	var doc userDoc
	if err := s.users.FindOne(ctx, query).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	doc := userDoc{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", err
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, patch UserPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{}
	if patch.Username != "" {
		set["username"] = patch.Username
	}
	if patch.Email != "" {
		set["email"] = patch.Email
	}
	if patch.PasswordHash != "" {
		set["password"] = patch.PasswordHash
	}
	if len(set) == 0 {
		return nil
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindRoomsByCreator(ctx context.Context, userID string) ([]models.Room, error) {
	cur, err := s.rooms.Find(ctx, bson.M{"created_by": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []roomDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	rooms := make([]models.Room, len(docs))
	for i := range docs {
		rooms[i] = *docs[i].toModel()
	}
	return rooms, nil
}

func (s *MongoStore) FindRoomByKey(ctx context.Context, key string) (*models.Room, error) {
	var doc roomDoc
	if err := s.rooms.FindOne(ctx, bson.M{"key": key}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	members := room.Members
	if members == nil {
		members = []string{}
	}

	doc := roomDoc{
		Name:      room.Name,
		Key:       room.Key,
		CreatedBy: room.CreatedBy,
		CreatedAt: room.CreatedAt,
		Members:   members,
	}

	res, err := s.rooms.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		return "", err
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

// AddMember — атомарный $addToSet, дубликаты невозможны на уровне хранилища
func (s *MongoStore) AddMember(ctx context.Context, key, userID string) error {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$addToSet": bson.M{"members": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveMember — атомарный $pull, отсутствие участника — no-op
func (s *MongoStore) RemoveMember(ctx context.Context, key, userID string) error {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$pull": bson.M{"members": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteRoom(ctx context.Context, key string) error {
	res, err := s.rooms.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func (d *roomDoc) toModel() *models.Room {
	members := d.Members
	if members == nil {
		members = []string{}
	}
	return &models.Room{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Key:       d.Key,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		Members:   members,
	}
}
