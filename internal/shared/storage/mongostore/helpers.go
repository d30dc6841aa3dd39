package mongostore

import (
	"context"
	"errors"

	"crowdtasks-admin/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// wrapError 将 MongoDB 错误转换为 storage.ErrNotFound / storage.ErrDuplicate
func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		// _id 冲突与 name 唯一索引冲突都归为 ErrDuplicate
		return storage.ErrDuplicate
	}
	return err
}

// byID _id 过滤条件
func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// byField 单字段等值过滤条件
func byField(key string, value any) bson.D {
	return bson.D{{Key: key, Value: value}}
}

// oldestFirst 按创建时间升序，时间相同时按 tie 字段排序
func oldestFirst(tie string) *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: tie, Value: 1}})
}

// findOne 查找单个文档，不存在时返回 storage.ErrNotFound
func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	var doc T
	if err := col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, wrapError(err)
	}
	return &doc, nil
}

// findAll 按 opts 排序返回全部匹配文档
func findAll[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts *options.FindOptionsBuilder) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapError(err)
	}
	var docs []*T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// insert 插入文档，唯一约束冲突返回 storage.ErrDuplicate
func insert(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

// setByID 按 _id 设置字段，文档不存在时返回 storage.ErrNotFound
func setByID(ctx context.Context, col *mongo.Collection, id string, fields bson.D) error {
	res, err := col.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
