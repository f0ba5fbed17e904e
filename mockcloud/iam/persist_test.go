package iam

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance check
var _ Service = (*Store)(nil)

func setupTestNatsKV(t *testing.T) *NatsKV {
	t.Helper()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(func() { ns.Shutdown() })

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() { nc.Close() })

	kv, err := NewNatsKV(nc)
	require.NoError(t, err)
	return kv
}

func TestNatsKVPutListDelete(t *testing.T) {
	kv := setupTestNatsKV(t)

	entries, err := kv.List(KVBucketUsers)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, kv.Put(KVBucketUsers, "123456789012.alice", []byte(`{"user_name":"alice"}`)))
	require.NoError(t, kv.Put(KVBucketUsers, "123456789012.bob", []byte(`{"user_name":"bob"}`)))

	entries, err = kv.List(KVBucketUsers)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.JSONEq(t, `{"user_name":"alice"}`, string(entries["123456789012.alice"]))

	require.NoError(t, kv.Delete(KVBucketUsers, "123456789012.alice"))
	// Deleting a missing key is not an error.
	require.NoError(t, kv.Delete(KVBucketUsers, "123456789012.alice"))

	entries, err = kv.List(KVBucketUsers)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStoreReplayFromKV(t *testing.T) {
	kv := setupTestNatsKV(t)
	masterKey, err := GenerateMasterKey()
	require.NoError(t, err)

	store, err := NewStore(masterKey, kv)
	require.NoError(t, err)

	createTestUser(t, store, testAccountID, "alice")
	policy := createTestPolicy(t, store, testAccountID, "s3-read", allowS3ReadDoc)
	_, err = store.CreateGroup(testAccountID, &awsiam.CreateGroupInput{GroupName: aws.String("devs")})
	require.NoError(t, err)
	_, err = store.AddUserToGroup(testAccountID, &awsiam.AddUserToGroupInput{
		GroupName: aws.String("devs"),
		UserName:  aws.String("alice"),
	})
	require.NoError(t, err)
	_, err = store.AttachGroupPolicy(testAccountID, &awsiam.AttachGroupPolicyInput{
		GroupName: aws.String("devs"),
		PolicyArn: policy.Arn,
	})
	require.NoError(t, err)
	keyOut, err := store.CreateAccessKey(testAccountID, &awsiam.CreateAccessKeyInput{UserName: aws.String("alice")})
	require.NoError(t, err)
	_, err = store.PutResourcePolicy(testAccountID, &PutResourcePolicyInput{
		ResourceType: aws.String("s3"),
		ResourceId:   aws.String("reports"),
		PolicyDocument: aws.String(`{
			"Version": "2012-10-17",
			"Statement": [
				{"Effect": "Allow", "Principal": "*", "Action": "s3:GetObject", "Resource": "arn:aws:s3:::reports/*"}
			]
		}`),
	})
	require.NoError(t, err)

	// A second store over the same KV sees the full state.
	replayed, err := NewStore(masterKey, kv)
	require.NoError(t, err)

	out, err := replayed.GetUser(testAccountID, &awsiam.GetUserInput{UserName: aws.String("alice")})
	require.NoError(t, err)
	assert.Equal(t, "alice", *out.User.UserName)

	docs, err := replayed.GetPrincipalPolicies(testAccountID, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s3-read", docs[0].PolicyName)

	ak, err := replayed.LookupAccessKey(*keyOut.AccessKey.AccessKeyId)
	require.NoError(t, err)
	secret, err := replayed.DecryptSecret(ak.EncryptedSecret)
	require.NoError(t, err)
	assert.Equal(t, *keyOut.AccessKey.SecretAccessKey, secret)

	sourced, err := replayed.GetResourcePolicyDocument(testAccountID, "arn:aws:s3:::reports/q1.csv")
	require.NoError(t, err)
	require.NotNil(t, sourced)

	// Deletes propagate too.
	_, err = store.DeleteAccessKey(testAccountID, &awsiam.DeleteAccessKeyInput{
		UserName:    aws.String("alice"),
		AccessKeyId: keyOut.AccessKey.AccessKeyId,
	})
	require.NoError(t, err)

	again, err := NewStore(masterKey, kv)
	require.NoError(t, err)
	_, err = again.LookupAccessKey(*keyOut.AccessKey.AccessKeyId)
	require.Error(t, err)
}
