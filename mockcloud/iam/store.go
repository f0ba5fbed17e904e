package iam

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
)

const maxAccessKeysPerUser = 2

// accountState holds every IAM entity belonging to one account. Entities
// are keyed by name; resource policies by "type/id".
type accountState struct {
	users            map[string]*User
	groups           map[string]*Group
	roles            map[string]*Role
	policies         map[string]*Policy
	resourcePolicies map[string]*ResourcePolicy
}

func newAccountState() *accountState {
	return &accountState{
		users:            make(map[string]*User),
		groups:           make(map[string]*Group),
		roles:            make(map[string]*Role),
		policies:         make(map[string]*Policy),
		resourcePolicies: make(map[string]*ResourcePolicy),
	}
}

// Store implements Service with in-memory state guarded by a single
// RWMutex: evaluations resolve their whole document set under one read
// lock and therefore see a consistent snapshot, mutations serialize under
// the write lock. When constructed with a KV, every mutation is written
// through to it and the full state is replayed from it on start.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]*accountState
	accessKeys map[string]*AccessKey
	cipher     *SecretCipher
	kv         KV
}

// NewStore creates a store encrypting access-key secrets under masterKey.
// kv may be nil for a purely in-memory (library or test) deployment.
func NewStore(masterKey []byte, kv KV) (*Store, error) {
	cipher, err := NewSecretCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("init secret cipher: %w", err)
	}

	s := &Store{
		accounts:   make(map[string]*accountState),
		accessKeys: make(map[string]*AccessKey),
		cipher:     cipher,
		kv:         kv,
	}

	if kv != nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load IAM state: %w", err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	if err := loadBucket(s.kv, KVBucketUsers, func(u *User) {
		s.ensureAccount(u.AccountID).users[u.UserName] = u
	}); err != nil {
		return err
	}
	if err := loadBucket(s.kv, KVBucketGroups, func(g *Group) {
		s.ensureAccount(g.AccountID).groups[g.GroupName] = g
	}); err != nil {
		return err
	}
	if err := loadBucket(s.kv, KVBucketRoles, func(r *Role) {
		s.ensureAccount(r.AccountID).roles[r.RoleName] = r
	}); err != nil {
		return err
	}
	if err := loadBucket(s.kv, KVBucketPolicies, func(p *Policy) {
		s.ensureAccount(p.AccountID).policies[p.PolicyName] = p
	}); err != nil {
		return err
	}
	if err := loadBucket(s.kv, KVBucketResourcePolicies, func(rp *ResourcePolicy) {
		s.ensureAccount(rp.AccountID).resourcePolicies[rp.ResourceType+"/"+rp.ResourceID] = rp
	}); err != nil {
		return err
	}
	if err := loadBucket(s.kv, KVBucketAccessKeys, func(ak *AccessKey) {
		s.accessKeys[ak.AccessKeyID] = ak
	}); err != nil {
		return err
	}

	slog.Info("IAM state loaded", "accounts", len(s.accounts), "access_keys", len(s.accessKeys))
	return nil
}

func loadBucket[T any](kv KV, bucket string, add func(*T)) error {
	entries, err := kv.List(bucket)
	if err != nil {
		return err
	}
	for key, data := range entries {
		record := new(T)
		if err := json.Unmarshal(data, record); err != nil {
			slog.Warn("Skipping unreadable record", "bucket", bucket, "key", key, "err", err)
			continue
		}
		add(record)
	}
	return nil
}

// ensureAccount must be called under the write lock (or during load).
func (s *Store) ensureAccount(accountID string) *accountState {
	state, ok := s.accounts[accountID]
	if !ok {
		state = newAccountState()
		s.accounts[accountID] = state
	}
	return state
}

// state returns nil for an account with no entities; read paths treat
// that the same as a missing entity.
func (s *Store) state(accountID string) *accountState {
	return s.accounts[accountID]
}

func (s *Store) persist(bucket, key string, record any) error {
	if s.kv == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	if err := s.kv.Put(bucket, key, data); err != nil {
		return awserrors.NewErrorf(awserrors.ErrorIAMServiceFailure, "persist %s: %v", bucket, err)
	}
	return nil
}

func (s *Store) unpersist(bucket, key string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(bucket, key); err != nil {
		return awserrors.NewErrorf(awserrors.ErrorIAMServiceFailure, "remove %s: %v", bucket, err)
	}
	return nil
}

func scopedKey(accountID, name string) string {
	return accountID + "." + name
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseCreated(entity, name, createdAt string) time.Time {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		slog.Warn("Failed to parse CreatedAt", "entity", entity, "name", name, "createdAt", createdAt, "err", err)
	}
	return t
}

// ---------------------------------------------------------------------------
// User CRUD
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(accountID string, input *awsiam.CreateUserInput) (*awsiam.CreateUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	userName := *input.UserName
	path := "/"
	if input.Path != nil {
		path = *input.Path
	}

	user := &User{
		UserName:         userName,
		UserID:           GenerateUserID(),
		ARN:              fmt.Sprintf("arn:aws:iam::%s:user%s%s", accountID, path, userName),
		Path:             path,
		AccountID:        accountID,
		CreatedAt:        nowRFC3339(),
		AccessKeys:       []string{},
		Groups:           []string{},
		AttachedPolicies: []string{},
		Tags:             []Tag{},
	}
	for _, tag := range input.Tags {
		if tag.Key != nil && tag.Value != nil {
			user.Tags = append(user.Tags, Tag{Key: *tag.Key, Value: *tag.Value})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if _, exists := state.users[userName]; exists {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMEntityAlreadyExists, "user %s already exists", userName)
	}
	if err := s.persist(KVBucketUsers, scopedKey(accountID, userName), user); err != nil {
		return nil, err
	}
	state.users[userName] = user

	slog.Info("IAM user created", "accountID", accountID, "userName", userName, "userID", user.UserID)
	return &awsiam.CreateUserOutput{User: sdkUser(user)}, nil
}

func (s *Store) GetUser(accountID string, input *awsiam.GetUserInput) (*awsiam.GetUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}
	return &awsiam.GetUserOutput{User: sdkUser(user)}, nil
}

func (s *Store) ListUsers(accountID string, input *awsiam.ListUsersInput) (*awsiam.ListUsersOutput, error) {
	pathPrefix := "/"
	if input.PathPrefix != nil {
		pathPrefix = *input.PathPrefix
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []*awsiam.User{}
	if state := s.state(accountID); state != nil {
		for _, name := range sortedKeys(state.users) {
			user := state.users[name]
			if !strings.HasPrefix(user.Path, pathPrefix) {
				continue
			}
			users = append(users, sdkUser(user))
		}
	}
	return &awsiam.ListUsersOutput{Users: users, IsTruncated: aws.Bool(false)}, nil
}

func (s *Store) DeleteUser(accountID string, input *awsiam.DeleteUserInput) (*awsiam.DeleteUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}
	userName := *input.UserName

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}
	if len(user.AccessKeys) > 0 {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMDeleteConflict, "user %s has active access keys", userName)
	}

	if err := s.unpersist(KVBucketUsers, scopedKey(accountID, userName)); err != nil {
		return nil, err
	}

	state := s.state(accountID)
	// Drop the user's group memberships with it.
	for _, groupName := range user.Groups {
		group, ok := state.groups[groupName]
		if !ok {
			continue
		}
		group.Members = removeString(group.Members, userName)
		if err := s.persist(KVBucketGroups, scopedKey(accountID, groupName), group); err != nil {
			slog.Error("Failed to persist group after member delete", "groupName", groupName, "err", err)
		}
	}
	delete(state.users, userName)

	slog.Info("IAM user deleted", "accountID", accountID, "userName", userName)
	return &awsiam.DeleteUserOutput{}, nil
}

// ---------------------------------------------------------------------------
// Group CRUD and membership
// ---------------------------------------------------------------------------

func (s *Store) CreateGroup(accountID string, input *awsiam.CreateGroupInput) (*awsiam.CreateGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}

	groupName := *input.GroupName
	path := "/"
	if input.Path != nil {
		path = *input.Path
	}

	group := &Group{
		GroupName:        groupName,
		GroupID:          GenerateGroupID(),
		ARN:              fmt.Sprintf("arn:aws:iam::%s:group%s%s", accountID, path, groupName),
		Path:             path,
		AccountID:        accountID,
		CreatedAt:        nowRFC3339(),
		Members:          []string{},
		AttachedPolicies: []string{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if _, exists := state.groups[groupName]; exists {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMEntityAlreadyExists, "group %s already exists", groupName)
	}
	if err := s.persist(KVBucketGroups, scopedKey(accountID, groupName), group); err != nil {
		return nil, err
	}
	state.groups[groupName] = group

	slog.Info("IAM group created", "accountID", accountID, "groupName", groupName, "groupID", group.GroupID)
	return &awsiam.CreateGroupOutput{Group: sdkGroup(group)}, nil
}

func (s *Store) GetGroup(accountID string, input *awsiam.GetGroupInput) (*awsiam.GetGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	group, err := s.getGroup(accountID, *input.GroupName)
	if err != nil {
		return nil, err
	}

	state := s.state(accountID)
	users := []*awsiam.User{}
	for _, userName := range group.Members {
		if user, ok := state.users[userName]; ok {
			users = append(users, sdkUser(user))
		}
	}
	return &awsiam.GetGroupOutput{
		Group:       sdkGroup(group),
		Users:       users,
		IsTruncated: aws.Bool(false),
	}, nil
}

func (s *Store) ListGroups(accountID string, input *awsiam.ListGroupsInput) (*awsiam.ListGroupsOutput, error) {
	pathPrefix := "/"
	if input.PathPrefix != nil {
		pathPrefix = *input.PathPrefix
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := []*awsiam.Group{}
	if state := s.state(accountID); state != nil {
		for _, name := range sortedKeys(state.groups) {
			group := state.groups[name]
			if !strings.HasPrefix(group.Path, pathPrefix) {
				continue
			}
			groups = append(groups, sdkGroup(group))
		}
	}
	return &awsiam.ListGroupsOutput{Groups: groups, IsTruncated: aws.Bool(false)}, nil
}

func (s *Store) DeleteGroup(accountID string, input *awsiam.DeleteGroupInput) (*awsiam.DeleteGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}
	groupName := *input.GroupName

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.getGroup(accountID, groupName)
	if err != nil {
		return nil, err
	}
	if len(group.Members) > 0 {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMDeleteConflict, "group %s still has members", groupName)
	}

	if err := s.unpersist(KVBucketGroups, scopedKey(accountID, groupName)); err != nil {
		return nil, err
	}
	delete(s.state(accountID).groups, groupName)

	slog.Info("IAM group deleted", "accountID", accountID, "groupName", groupName)
	return &awsiam.DeleteGroupOutput{}, nil
}

func (s *Store) AddUserToGroup(accountID string, input *awsiam.AddUserToGroupInput) (*awsiam.AddUserToGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	groupName := *input.GroupName
	userName := *input.UserName

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.getGroup(accountID, groupName)
	if err != nil {
		return nil, err
	}
	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}

	// Re-adding a member succeeds silently.
	if slices.Contains(group.Members, userName) {
		return &awsiam.AddUserToGroupOutput{}, nil
	}

	// Persist updated copies first; the live records only change once both
	// KV writes have landed.
	updatedGroup := *group
	updatedGroup.Members = append(slices.Clone(group.Members), userName)
	updatedUser := *user
	updatedUser.Groups = append(slices.Clone(user.Groups), groupName)

	if err := s.persist(KVBucketGroups, scopedKey(accountID, groupName), &updatedGroup); err != nil {
		return nil, err
	}
	if err := s.persist(KVBucketUsers, scopedKey(accountID, userName), &updatedUser); err != nil {
		if rbErr := s.persist(KVBucketGroups, scopedKey(accountID, groupName), group); rbErr != nil {
			slog.Error("Rollback failed: group membership out of sync", "groupName", groupName, "err", rbErr)
		}
		return nil, err
	}
	group.Members = updatedGroup.Members
	user.Groups = updatedUser.Groups

	slog.Info("IAM user added to group", "accountID", accountID, "userName", userName, "groupName", groupName)
	return &awsiam.AddUserToGroupOutput{}, nil
}

func (s *Store) RemoveUserFromGroup(accountID string, input *awsiam.RemoveUserFromGroupInput) (*awsiam.RemoveUserFromGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	groupName := *input.GroupName
	userName := *input.UserName

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.getGroup(accountID, groupName)
	if err != nil {
		return nil, err
	}
	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(group.Members, userName) {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "user %s is not a member of group %s", userName, groupName)
	}

	updatedGroup := *group
	updatedGroup.Members = removeString(group.Members, userName)
	updatedUser := *user
	updatedUser.Groups = removeString(user.Groups, groupName)

	if err := s.persist(KVBucketGroups, scopedKey(accountID, groupName), &updatedGroup); err != nil {
		return nil, err
	}
	if err := s.persist(KVBucketUsers, scopedKey(accountID, userName), &updatedUser); err != nil {
		if rbErr := s.persist(KVBucketGroups, scopedKey(accountID, groupName), group); rbErr != nil {
			slog.Error("Rollback failed: group membership out of sync", "groupName", groupName, "err", rbErr)
		}
		return nil, err
	}
	group.Members = updatedGroup.Members
	user.Groups = updatedUser.Groups

	slog.Info("IAM user removed from group", "accountID", accountID, "userName", userName, "groupName", groupName)
	return &awsiam.RemoveUserFromGroupOutput{}, nil
}

func (s *Store) ListGroupsForUser(accountID string, input *awsiam.ListGroupsForUserInput) (*awsiam.ListGroupsForUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}

	state := s.state(accountID)
	groups := []*awsiam.Group{}
	for _, groupName := range user.Groups {
		if group, ok := state.groups[groupName]; ok {
			groups = append(groups, sdkGroup(group))
		}
	}
	return &awsiam.ListGroupsForUserOutput{Groups: groups, IsTruncated: aws.Bool(false)}, nil
}

// ---------------------------------------------------------------------------
// Role CRUD
// ---------------------------------------------------------------------------

func (s *Store) CreateRole(accountID string, input *awsiam.CreateRoleInput) (*awsiam.CreateRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "RoleName is required")
	}
	if input.AssumeRolePolicyDocument == nil || *input.AssumeRolePolicyDocument == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "AssumeRolePolicyDocument is required")
	}

	roleName := *input.RoleName
	if _, err := ParseResourcePolicyDocument(*input.AssumeRolePolicyDocument); err != nil {
		slog.Debug("CreateRole: invalid trust policy", "roleName", roleName, "err", err)
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMMalformedPolicyDocument, "invalid trust policy: %v", err)
	}

	path := "/"
	if input.Path != nil {
		path = *input.Path
	}
	var description string
	if input.Description != nil {
		description = *input.Description
	}

	role := &Role{
		RoleName:         roleName,
		RoleID:           GenerateRoleID(),
		ARN:              fmt.Sprintf("arn:aws:iam::%s:role%s%s", accountID, path, roleName),
		Path:             path,
		AccountID:        accountID,
		CreatedAt:        nowRFC3339(),
		Description:      description,
		TrustPolicy:      *input.AssumeRolePolicyDocument,
		AttachedPolicies: []string{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if _, exists := state.roles[roleName]; exists {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMEntityAlreadyExists, "role %s already exists", roleName)
	}
	if err := s.persist(KVBucketRoles, scopedKey(accountID, roleName), role); err != nil {
		return nil, err
	}
	state.roles[roleName] = role

	slog.Info("IAM role created", "accountID", accountID, "roleName", roleName, "roleID", role.RoleID)
	return &awsiam.CreateRoleOutput{Role: sdkRole(role)}, nil
}

func (s *Store) GetRole(accountID string, input *awsiam.GetRoleInput) (*awsiam.GetRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "RoleName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	role, err := s.getRole(accountID, *input.RoleName)
	if err != nil {
		return nil, err
	}
	return &awsiam.GetRoleOutput{Role: sdkRole(role)}, nil
}

func (s *Store) ListRoles(accountID string, input *awsiam.ListRolesInput) (*awsiam.ListRolesOutput, error) {
	pathPrefix := "/"
	if input.PathPrefix != nil {
		pathPrefix = *input.PathPrefix
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := []*awsiam.Role{}
	if state := s.state(accountID); state != nil {
		for _, name := range sortedKeys(state.roles) {
			role := state.roles[name]
			if !strings.HasPrefix(role.Path, pathPrefix) {
				continue
			}
			roles = append(roles, sdkRole(role))
		}
	}
	return &awsiam.ListRolesOutput{Roles: roles, IsTruncated: aws.Bool(false)}, nil
}

func (s *Store) DeleteRole(accountID string, input *awsiam.DeleteRoleInput) (*awsiam.DeleteRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "RoleName is required")
	}
	roleName := *input.RoleName

	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.getRole(accountID, roleName)
	if err != nil {
		return nil, err
	}
	if len(role.AttachedPolicies) > 0 {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMDeleteConflict, "role %s still has attached policies", roleName)
	}

	if err := s.unpersist(KVBucketRoles, scopedKey(accountID, roleName)); err != nil {
		return nil, err
	}
	delete(s.state(accountID).roles, roleName)

	slog.Info("IAM role deleted", "accountID", accountID, "roleName", roleName)
	return &awsiam.DeleteRoleOutput{}, nil
}

// ---------------------------------------------------------------------------
// Access key lifecycle
// ---------------------------------------------------------------------------

func (s *Store) CreateAccessKey(accountID string, input *awsiam.CreateAccessKeyInput) (*awsiam.CreateAccessKeyOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}
	userName := *input.UserName

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}
	if len(user.AccessKeys) >= maxAccessKeysPerUser {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMLimitExceeded, "user %s already has %d access keys", userName, maxAccessKeysPerUser)
	}

	accessKeyID := GenerateAccessKeyID()
	secretAccessKey := GenerateSecretAccessKey()
	encryptedSecret, err := s.cipher.Encrypt(secretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}

	ak := &AccessKey{
		AccessKeyID:     accessKeyID,
		EncryptedSecret: encryptedSecret,
		UserName:        userName,
		AccountID:       accountID,
		Status:          "Active",
		CreatedAt:       nowRFC3339(),
	}

	user.AccessKeys = append(user.AccessKeys, accessKeyID)
	if err := s.persist(KVBucketAccessKeys, accessKeyID, ak); err != nil {
		user.AccessKeys = removeString(user.AccessKeys, accessKeyID)
		return nil, err
	}
	if err := s.persist(KVBucketUsers, scopedKey(accountID, userName), user); err != nil {
		user.AccessKeys = removeString(user.AccessKeys, accessKeyID)
		if rbErr := s.unpersist(KVBucketAccessKeys, accessKeyID); rbErr != nil {
			slog.Error("Rollback failed: orphaned access key", "accessKeyID", accessKeyID, "err", rbErr)
		}
		return nil, err
	}
	s.accessKeys[accessKeyID] = ak

	slog.Info("IAM access key created", "accountID", accountID, "userName", userName, "accessKeyID", accessKeyID)
	return &awsiam.CreateAccessKeyOutput{
		AccessKey: &awsiam.AccessKey{
			AccessKeyId:     aws.String(accessKeyID),
			SecretAccessKey: aws.String(secretAccessKey), // plaintext, only returned here
			UserName:        aws.String(userName),
			Status:          aws.String("Active"),
			CreateDate:      aws.Time(parseCreated("access key", accessKeyID, ak.CreatedAt)),
		},
	}, nil
}

func (s *Store) ListAccessKeys(accountID string, input *awsiam.ListAccessKeysInput) (*awsiam.ListAccessKeysOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}

	var metadata []*awsiam.AccessKeyMetadata
	for _, keyID := range user.AccessKeys {
		ak, ok := s.accessKeys[keyID]
		if !ok {
			slog.Warn("ListAccessKeys: dangling access key reference", "keyID", keyID)
			continue
		}
		metadata = append(metadata, &awsiam.AccessKeyMetadata{
			AccessKeyId: aws.String(ak.AccessKeyID),
			UserName:    aws.String(ak.UserName),
			Status:      aws.String(ak.Status),
			CreateDate:  aws.Time(parseCreated("access key", keyID, ak.CreatedAt)),
		})
	}
	return &awsiam.ListAccessKeysOutput{
		AccessKeyMetadata: metadata,
		IsTruncated:       aws.Bool(false),
	}, nil
}

func (s *Store) DeleteAccessKey(accountID string, input *awsiam.DeleteAccessKeyInput) (*awsiam.DeleteAccessKeyOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}
	if input.AccessKeyId == nil || *input.AccessKeyId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "AccessKeyId is required")
	}

	userName := *input.UserName
	accessKeyID := *input.AccessKeyId

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(user.AccessKeys, accessKeyID) {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "access key %s not found for user %s", accessKeyID, userName)
	}

	updated := *user
	updated.AccessKeys = removeString(user.AccessKeys, accessKeyID)

	if err := s.unpersist(KVBucketAccessKeys, accessKeyID); err != nil {
		return nil, err
	}
	if err := s.persist(KVBucketUsers, scopedKey(accountID, userName), &updated); err != nil {
		if ak, ok := s.accessKeys[accessKeyID]; ok {
			if rbErr := s.persist(KVBucketAccessKeys, accessKeyID, ak); rbErr != nil {
				slog.Error("Rollback failed: access key record lost", "accessKeyID", accessKeyID, "err", rbErr)
			}
		}
		return nil, err
	}
	user.AccessKeys = updated.AccessKeys
	delete(s.accessKeys, accessKeyID)

	slog.Info("IAM access key deleted", "accountID", accountID, "userName", userName, "accessKeyID", accessKeyID)
	return &awsiam.DeleteAccessKeyOutput{}, nil
}

func (s *Store) UpdateAccessKey(accountID string, input *awsiam.UpdateAccessKeyInput) (*awsiam.UpdateAccessKeyOutput, error) {
	if input.AccessKeyId == nil || *input.AccessKeyId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "AccessKeyId is required")
	}
	if input.Status == nil || (*input.Status != "Active" && *input.Status != "Inactive") {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "Status must be Active or Inactive")
	}

	accessKeyID := *input.AccessKeyId
	status := *input.Status

	s.mu.Lock()
	defer s.mu.Unlock()

	ak, ok := s.accessKeys[accessKeyID]
	if !ok || ak.AccountID != accountID {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "access key %s not found", accessKeyID)
	}

	previous := ak.Status
	ak.Status = status
	if err := s.persist(KVBucketAccessKeys, accessKeyID, ak); err != nil {
		ak.Status = previous
		return nil, err
	}

	slog.Info("IAM access key updated", "accountID", accountID, "accessKeyID", accessKeyID, "status", status)
	return &awsiam.UpdateAccessKeyOutput{}, nil
}

// ---------------------------------------------------------------------------
// Policy CRUD
// ---------------------------------------------------------------------------

func (s *Store) CreatePolicy(accountID string, input *awsiam.CreatePolicyInput) (*awsiam.CreatePolicyOutput, error) {
	if input.PolicyName == nil || *input.PolicyName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyName is required")
	}
	if input.PolicyDocument == nil || *input.PolicyDocument == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyDocument is required")
	}

	policyName := *input.PolicyName
	if _, err := ParsePolicyDocument(*input.PolicyDocument); err != nil {
		slog.Debug("CreatePolicy: invalid policy document", "policyName", policyName, "err", err)
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMMalformedPolicyDocument, "%v", err)
	}

	path := "/"
	if input.Path != nil {
		path = *input.Path
	}
	var description string
	if input.Description != nil {
		description = *input.Description
	}

	policy := &Policy{
		PolicyName:     policyName,
		PolicyID:       GeneratePolicyID(),
		ARN:            fmt.Sprintf("arn:aws:iam::%s:policy%s%s", accountID, path, policyName),
		Path:           path,
		AccountID:      accountID,
		Description:    description,
		PolicyDocument: *input.PolicyDocument,
		DefaultVersion: "v1",
		CreatedAt:      nowRFC3339(),
		Tags:           []Tag{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if _, exists := state.policies[policyName]; exists {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMEntityAlreadyExists, "policy %s already exists", policyName)
	}
	if err := s.persist(KVBucketPolicies, scopedKey(accountID, policyName), policy); err != nil {
		return nil, err
	}
	state.policies[policyName] = policy

	slog.Info("IAM policy created", "accountID", accountID, "policyName", policyName, "policyID", policy.PolicyID)
	return &awsiam.CreatePolicyOutput{Policy: s.sdkPolicy(policy)}, nil
}

func (s *Store) GetPolicy(accountID string, input *awsiam.GetPolicyInput) (*awsiam.GetPolicyOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyArn is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, err := s.getPolicyByARN(accountID, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	return &awsiam.GetPolicyOutput{Policy: s.sdkPolicy(policy)}, nil
}

func (s *Store) GetPolicyVersion(accountID string, input *awsiam.GetPolicyVersionInput) (*awsiam.GetPolicyVersionOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyArn is required")
	}
	if input.VersionId == nil || *input.VersionId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "VersionId is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, err := s.getPolicyByARN(accountID, *input.PolicyArn)
	if err != nil {
		return nil, err
	}

	// Only v1 exists, policies are immutable once created.
	if *input.VersionId != "v1" {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy version %s not found", *input.VersionId)
	}

	return &awsiam.GetPolicyVersionOutput{
		PolicyVersion: &awsiam.PolicyVersion{
			Document:         aws.String(policy.PolicyDocument),
			VersionId:        aws.String("v1"),
			IsDefaultVersion: aws.Bool(true),
			CreateDate:       aws.Time(parseCreated("policy", policy.PolicyName, policy.CreatedAt)),
		},
	}, nil
}

func (s *Store) ListPolicies(accountID string, input *awsiam.ListPoliciesInput) (*awsiam.ListPoliciesOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := []*awsiam.Policy{}
	if state := s.state(accountID); state != nil {
		for _, name := range sortedKeys(state.policies) {
			policies = append(policies, s.sdkPolicy(state.policies[name]))
		}
	}
	return &awsiam.ListPoliciesOutput{Policies: policies, IsTruncated: aws.Bool(false)}, nil
}

func (s *Store) DeletePolicy(accountID string, input *awsiam.DeletePolicyInput) (*awsiam.DeletePolicyOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyArn is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.getPolicyByARN(accountID, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	if s.countPolicyAttachments(accountID, policy.ARN) > 0 {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMDeleteConflict, "policy %s is still attached", policy.PolicyName)
	}

	if err := s.unpersist(KVBucketPolicies, scopedKey(accountID, policy.PolicyName)); err != nil {
		return nil, err
	}
	delete(s.state(accountID).policies, policy.PolicyName)

	slog.Info("IAM policy deleted", "accountID", accountID, "policyName", policy.PolicyName)
	return &awsiam.DeletePolicyOutput{}, nil
}

// ---------------------------------------------------------------------------
// Policy attachment
// ---------------------------------------------------------------------------

func (s *Store) AttachUserPolicy(accountID string, input *awsiam.AttachUserPolicyInput) (*awsiam.AttachUserPolicyOutput, error) {
	if err := requireAttachInput(input.UserName, input.PolicyArn, "UserName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}
	newList, attached, err := s.attach(accountID, user.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	if attached {
		updated := *user
		updated.AttachedPolicies = newList
		if err := s.persist(KVBucketUsers, scopedKey(accountID, user.UserName), &updated); err != nil {
			return nil, err
		}
		user.AttachedPolicies = newList
		slog.Info("IAM policy attached to user", "accountID", accountID, "userName", user.UserName, "policyArn", *input.PolicyArn)
	}
	return &awsiam.AttachUserPolicyOutput{}, nil
}

func (s *Store) DetachUserPolicy(accountID string, input *awsiam.DetachUserPolicyInput) (*awsiam.DetachUserPolicyOutput, error) {
	if err := requireAttachInput(input.UserName, input.PolicyArn, "UserName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}
	newList, err := detach(user.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	updated := *user
	updated.AttachedPolicies = newList
	if err := s.persist(KVBucketUsers, scopedKey(accountID, user.UserName), &updated); err != nil {
		return nil, err
	}
	user.AttachedPolicies = newList

	slog.Info("IAM policy detached from user", "accountID", accountID, "userName", user.UserName, "policyArn", *input.PolicyArn)
	return &awsiam.DetachUserPolicyOutput{}, nil
}

func (s *Store) ListAttachedUserPolicies(accountID string, input *awsiam.ListAttachedUserPoliciesInput) (*awsiam.ListAttachedUserPoliciesOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "UserName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(accountID, *input.UserName)
	if err != nil {
		return nil, err
	}
	return &awsiam.ListAttachedUserPoliciesOutput{
		AttachedPolicies: s.attachedPolicies(accountID, user.AttachedPolicies),
		IsTruncated:      aws.Bool(false),
	}, nil
}

func (s *Store) AttachGroupPolicy(accountID string, input *awsiam.AttachGroupPolicyInput) (*awsiam.AttachGroupPolicyOutput, error) {
	if err := requireAttachInput(input.GroupName, input.PolicyArn, "GroupName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.getGroup(accountID, *input.GroupName)
	if err != nil {
		return nil, err
	}
	newList, attached, err := s.attach(accountID, group.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	if attached {
		updated := *group
		updated.AttachedPolicies = newList
		if err := s.persist(KVBucketGroups, scopedKey(accountID, group.GroupName), &updated); err != nil {
			return nil, err
		}
		group.AttachedPolicies = newList
		slog.Info("IAM policy attached to group", "accountID", accountID, "groupName", group.GroupName, "policyArn", *input.PolicyArn)
	}
	return &awsiam.AttachGroupPolicyOutput{}, nil
}

func (s *Store) DetachGroupPolicy(accountID string, input *awsiam.DetachGroupPolicyInput) (*awsiam.DetachGroupPolicyOutput, error) {
	if err := requireAttachInput(input.GroupName, input.PolicyArn, "GroupName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.getGroup(accountID, *input.GroupName)
	if err != nil {
		return nil, err
	}
	newList, err := detach(group.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	updated := *group
	updated.AttachedPolicies = newList
	if err := s.persist(KVBucketGroups, scopedKey(accountID, group.GroupName), &updated); err != nil {
		return nil, err
	}
	group.AttachedPolicies = newList

	slog.Info("IAM policy detached from group", "accountID", accountID, "groupName", group.GroupName, "policyArn", *input.PolicyArn)
	return &awsiam.DetachGroupPolicyOutput{}, nil
}

func (s *Store) ListAttachedGroupPolicies(accountID string, input *awsiam.ListAttachedGroupPoliciesInput) (*awsiam.ListAttachedGroupPoliciesOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "GroupName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	group, err := s.getGroup(accountID, *input.GroupName)
	if err != nil {
		return nil, err
	}
	return &awsiam.ListAttachedGroupPoliciesOutput{
		AttachedPolicies: s.attachedPolicies(accountID, group.AttachedPolicies),
		IsTruncated:      aws.Bool(false),
	}, nil
}

func (s *Store) AttachRolePolicy(accountID string, input *awsiam.AttachRolePolicyInput) (*awsiam.AttachRolePolicyOutput, error) {
	if err := requireAttachInput(input.RoleName, input.PolicyArn, "RoleName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.getRole(accountID, *input.RoleName)
	if err != nil {
		return nil, err
	}
	newList, attached, err := s.attach(accountID, role.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	if attached {
		updated := *role
		updated.AttachedPolicies = newList
		if err := s.persist(KVBucketRoles, scopedKey(accountID, role.RoleName), &updated); err != nil {
			return nil, err
		}
		role.AttachedPolicies = newList
		slog.Info("IAM policy attached to role", "accountID", accountID, "roleName", role.RoleName, "policyArn", *input.PolicyArn)
	}
	return &awsiam.AttachRolePolicyOutput{}, nil
}

func (s *Store) DetachRolePolicy(accountID string, input *awsiam.DetachRolePolicyInput) (*awsiam.DetachRolePolicyOutput, error) {
	if err := requireAttachInput(input.RoleName, input.PolicyArn, "RoleName"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.getRole(accountID, *input.RoleName)
	if err != nil {
		return nil, err
	}
	newList, err := detach(role.AttachedPolicies, *input.PolicyArn)
	if err != nil {
		return nil, err
	}
	updated := *role
	updated.AttachedPolicies = newList
	if err := s.persist(KVBucketRoles, scopedKey(accountID, role.RoleName), &updated); err != nil {
		return nil, err
	}
	role.AttachedPolicies = newList

	slog.Info("IAM policy detached from role", "accountID", accountID, "roleName", role.RoleName, "policyArn", *input.PolicyArn)
	return &awsiam.DetachRolePolicyOutput{}, nil
}

func (s *Store) ListAttachedRolePolicies(accountID string, input *awsiam.ListAttachedRolePoliciesInput) (*awsiam.ListAttachedRolePoliciesOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "RoleName is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	role, err := s.getRole(accountID, *input.RoleName)
	if err != nil {
		return nil, err
	}
	return &awsiam.ListAttachedRolePoliciesOutput{
		AttachedPolicies: s.attachedPolicies(accountID, role.AttachedPolicies),
		IsTruncated:      aws.Bool(false),
	}, nil
}

// attach returns list with policyARN appended after verifying the policy
// exists. The input list is never mutated; callers commit the returned
// slice only after the record has been persisted. Returns false when the
// policy was already attached (idempotent).
func (s *Store) attach(accountID string, list []string, policyARN string) ([]string, bool, error) {
	if _, err := s.getPolicyByARN(accountID, policyARN); err != nil {
		return nil, false, err
	}
	if slices.Contains(list, policyARN) {
		return list, false, nil
	}
	return append(slices.Clone(list), policyARN), true, nil
}

func detach(list []string, policyARN string) ([]string, error) {
	if !slices.Contains(list, policyARN) {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s is not attached", policyARN)
	}
	return removeString(list, policyARN), nil
}

func (s *Store) attachedPolicies(accountID string, arns []string) []*awsiam.AttachedPolicy {
	var attached []*awsiam.AttachedPolicy
	for _, policyARN := range arns {
		policy, err := s.getPolicyByARN(accountID, policyARN)
		if err != nil {
			slog.Warn("Attached policy not resolvable", "arn", policyARN, "err", err)
			continue
		}
		attached = append(attached, &awsiam.AttachedPolicy{
			PolicyArn:  aws.String(policy.ARN),
			PolicyName: aws.String(policy.PolicyName),
		})
	}
	return attached
}

// ---------------------------------------------------------------------------
// Resource-based policies
// ---------------------------------------------------------------------------

func (s *Store) PutResourcePolicy(accountID string, input *PutResourcePolicyInput) (*PutResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceType is required")
	}
	if input.ResourceId == nil || *input.ResourceId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceId is required")
	}
	if input.PolicyDocument == nil || *input.PolicyDocument == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyDocument is required")
	}

	if _, err := ParseResourcePolicyDocument(*input.PolicyDocument); err != nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMMalformedPolicyDocument, "%v", err)
	}

	rp := &ResourcePolicy{
		ResourceType:   *input.ResourceType,
		ResourceID:     *input.ResourceId,
		AccountID:      accountID,
		PolicyDocument: *input.PolicyDocument,
		CreatedAt:      nowRFC3339(),
	}
	key := rp.ResourceType + "/" + rp.ResourceID

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if existing, ok := state.resourcePolicies[key]; ok {
		rp.CreatedAt = existing.CreatedAt
	}
	if err := s.persist(KVBucketResourcePolicies, scopedKey(accountID, rp.ResourceType+"."+rp.ResourceID), rp); err != nil {
		return nil, err
	}
	state.resourcePolicies[key] = rp

	slog.Info("Resource policy set", "accountID", accountID, "resourceType", rp.ResourceType, "resourceID", rp.ResourceID)
	return &PutResourcePolicyOutput{
		ResourceType: aws.String(rp.ResourceType),
		ResourceId:   aws.String(rp.ResourceID),
	}, nil
}

func (s *Store) GetResourcePolicy(accountID string, input *GetResourcePolicyInput) (*GetResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceType is required")
	}
	if input.ResourceId == nil || *input.ResourceId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceId is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state(accountID)
	if state == nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "no resource policy for %s/%s", *input.ResourceType, *input.ResourceId)
	}
	rp, ok := state.resourcePolicies[*input.ResourceType+"/"+*input.ResourceId]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "no resource policy for %s/%s", *input.ResourceType, *input.ResourceId)
	}

	return &GetResourcePolicyOutput{
		ResourceType:   aws.String(rp.ResourceType),
		ResourceId:     aws.String(rp.ResourceID),
		PolicyDocument: aws.String(rp.PolicyDocument),
		CreateDate:     aws.String(rp.CreatedAt),
	}, nil
}

func (s *Store) DeleteResourcePolicy(accountID string, input *DeleteResourcePolicyInput) (*DeleteResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceType is required")
	}
	if input.ResourceId == nil || *input.ResourceId == "" {
		return nil, awserrors.NewError(awserrors.ErrorIAMInvalidInput, "ResourceId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state(accountID)
	key := *input.ResourceType + "/" + *input.ResourceId
	if state == nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "no resource policy for %s", key)
	}
	if _, ok := state.resourcePolicies[key]; !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "no resource policy for %s", key)
	}

	if err := s.unpersist(KVBucketResourcePolicies, scopedKey(accountID, *input.ResourceType+"."+*input.ResourceId)); err != nil {
		return nil, err
	}
	delete(state.resourcePolicies, key)

	slog.Info("Resource policy deleted", "accountID", accountID, "resource", key)
	return &DeleteResourcePolicyOutput{}, nil
}

// ---------------------------------------------------------------------------
// Policy resolution (engine)
// ---------------------------------------------------------------------------

// GetPrincipalPolicies resolves every document attached to the user
// directly or through its groups, under a single read lock so the engine
// sees one consistent snapshot.
func (s *Store) GetPrincipalPolicies(accountID, userName string) ([]SourcedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.getUser(accountID, userName)
	if err != nil {
		return nil, err
	}

	state := s.state(accountID)
	arns := slices.Clone(user.AttachedPolicies)
	for _, groupName := range user.Groups {
		if group, ok := state.groups[groupName]; ok {
			arns = append(arns, group.AttachedPolicies...)
		}
	}
	return s.resolveDocuments(accountID, arns), nil
}

// GetRolePolicies resolves every document attached to the role.
func (s *Store) GetRolePolicies(accountID, roleName string) ([]SourcedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, err := s.getRole(accountID, roleName)
	if err != nil {
		return nil, err
	}
	return s.resolveDocuments(accountID, role.AttachedPolicies), nil
}

// resolveDocuments maps attached policy ARNs to parsed documents,
// deduplicating and skipping anything unresolvable.
func (s *Store) resolveDocuments(accountID string, arns []string) []SourcedDocument {
	seen := make(map[string]bool, len(arns))
	docs := []SourcedDocument{}
	for _, policyARN := range arns {
		if seen[policyARN] {
			continue
		}
		seen[policyARN] = true

		policy, err := s.getPolicyByARN(accountID, policyARN)
		if err != nil {
			slog.Warn("Skipping unresolvable policy", "arn", policyARN, "err", err)
			continue
		}
		doc, err := ParsePolicyDocument(policy.PolicyDocument)
		if err != nil {
			slog.Warn("Skipping invalid policy document", "policyName", policy.PolicyName, "err", err)
			continue
		}
		docs = append(docs, SourcedDocument{PolicyName: policy.PolicyName, Document: doc})
	}
	return docs
}

// GetResourcePolicyDocument finds the resource policy covering a request
// resource. The resource string must be an ARN; the policy is looked up
// by (service, resource) and by (service, top-level resource). Non-ARN
// resources have no resource policy.
func (s *Store) GetResourcePolicyDocument(accountID, resource string) (*SourcedDocument, error) {
	parsed, err := arn.Parse(resource)
	if err != nil {
		return nil, nil
	}

	candidates := []string{parsed.Service + "/" + parsed.Resource}
	if i := strings.IndexAny(parsed.Resource, "/:"); i > 0 {
		candidates = append(candidates, parsed.Service+"/"+parsed.Resource[:i])
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state(accountID)
	if state == nil {
		return nil, nil
	}
	for _, key := range candidates {
		rp, ok := state.resourcePolicies[key]
		if !ok {
			continue
		}
		doc, err := ParseResourcePolicyDocument(rp.PolicyDocument)
		if err != nil {
			slog.Warn("Skipping invalid resource policy", "resource", key, "err", err)
			continue
		}
		return &SourcedDocument{PolicyName: key, Document: doc}, nil
	}
	return nil, nil
}

// GetPolicyDocument returns a managed policy's parsed document by name.
func (s *Store) GetPolicyDocument(accountID, policyName string) (*SourcedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.state(accountID)
	if state == nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s not found", policyName)
	}
	policy, ok := state.policies[policyName]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s not found", policyName)
	}
	doc, err := ParsePolicyDocument(policy.PolicyDocument)
	if err != nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMPolicyEvaluationException, "policy %s: %v", policyName, err)
	}
	return &SourcedDocument{PolicyName: policyName, Document: doc}, nil
}

// ---------------------------------------------------------------------------
// Auth (used by SigV4 middleware and bootstrap)
// ---------------------------------------------------------------------------

// LookupAccessKey retrieves an access key by its ID. Returns the full
// record including the encrypted secret, for use by the SigV4 middleware.
func (s *Store) LookupAccessKey(accessKeyID string) (*AccessKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ak, ok := s.accessKeys[accessKeyID]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "access key %s not found", accessKeyID)
	}
	copied := *ak
	return &copied, nil
}

// DecryptSecret recovers an access key's plaintext secret.
func (s *Store) DecryptSecret(encrypted string) (string, error) {
	return s.cipher.Decrypt(encrypted)
}

// SeedRootUser consumes bootstrap data to create the root user and its
// access key. A previously seeded root is left untouched.
func (s *Store) SeedRootUser(data *BootstrapData) error {
	accountID := data.AccountID
	if accountID == "" {
		accountID = RootAccountID
	}

	encryptedSecret, err := s.cipher.Encrypt(data.SecretAccessKey)
	if err != nil {
		return fmt.Errorf("encrypt root secret: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensureAccount(accountID)
	if _, exists := state.users[RootUserName]; exists {
		slog.Info("Root user already seeded, skipping")
		return nil
	}

	rootUser := &User{
		UserName:         RootUserName,
		UserID:           "AIDAAAAAAAAAAAAAAAAA",
		ARN:              fmt.Sprintf("arn:aws:iam::%s:root", accountID),
		Path:             "/",
		AccountID:        accountID,
		CreatedAt:        nowRFC3339(),
		AccessKeys:       []string{data.AccessKeyID},
		Groups:           []string{},
		AttachedPolicies: []string{},
		Tags:             []Tag{},
	}
	ak := &AccessKey{
		AccessKeyID:     data.AccessKeyID,
		EncryptedSecret: encryptedSecret,
		UserName:        RootUserName,
		AccountID:       accountID,
		Status:          "Active",
		CreatedAt:       rootUser.CreatedAt,
	}

	if err := s.persist(KVBucketUsers, scopedKey(accountID, RootUserName), rootUser); err != nil {
		return err
	}
	if err := s.persist(KVBucketAccessKeys, ak.AccessKeyID, ak); err != nil {
		return err
	}
	state.users[RootUserName] = rootUser
	s.accessKeys[ak.AccessKeyID] = ak

	slog.Info("Root IAM user seeded", "accountID", accountID, "accessKeyID", data.AccessKeyID)
	return nil
}

// IsEmpty reports whether any user exists in any account.
func (s *Store) IsEmpty() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.accounts {
		if len(state.users) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Store) getUser(accountID, userName string) (*User, error) {
	if state := s.state(accountID); state != nil {
		if user, ok := state.users[userName]; ok {
			return user, nil
		}
	}
	return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "user %s not found", userName)
}

func (s *Store) getGroup(accountID, groupName string) (*Group, error) {
	if state := s.state(accountID); state != nil {
		if group, ok := state.groups[groupName]; ok {
			return group, nil
		}
	}
	return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "group %s not found", groupName)
}

func (s *Store) getRole(accountID, roleName string) (*Role, error) {
	if state := s.state(accountID); state != nil {
		if role, ok := state.roles[roleName]; ok {
			return role, nil
		}
	}
	return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "role %s not found", roleName)
}

// getPolicyByARN resolves arn:aws:iam::<account>:policy<path><name> to a
// stored policy. The full ARN must match, path included.
func (s *Store) getPolicyByARN(accountID, policyARN string) (*Policy, error) {
	parts := strings.SplitN(policyARN, ":policy", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "malformed policy ARN %s", policyARN)
	}
	segments := strings.Split(parts[1], "/")
	policyName := segments[len(segments)-1]
	if policyName == "" {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "malformed policy ARN %s", policyARN)
	}

	state := s.state(accountID)
	if state == nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s not found", policyName)
	}
	policy, ok := state.policies[policyName]
	if !ok || policy.ARN != policyARN {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s not found", policyName)
	}
	return policy, nil
}

// countPolicyAttachments counts attachments across users, groups and roles.
func (s *Store) countPolicyAttachments(accountID, policyARN string) int64 {
	state := s.state(accountID)
	if state == nil {
		return 0
	}

	var count int64
	for _, user := range state.users {
		if slices.Contains(user.AttachedPolicies, policyARN) {
			count++
		}
	}
	for _, group := range state.groups {
		if slices.Contains(group.AttachedPolicies, policyARN) {
			count++
		}
	}
	for _, role := range state.roles {
		if slices.Contains(role.AttachedPolicies, policyARN) {
			count++
		}
	}
	return count
}

func sdkUser(user *User) *awsiam.User {
	return &awsiam.User{
		UserName:   aws.String(user.UserName),
		UserId:     aws.String(user.UserID),
		Arn:        aws.String(user.ARN),
		Path:       aws.String(user.Path),
		CreateDate: aws.Time(parseCreated("user", user.UserName, user.CreatedAt)),
	}
}

func sdkGroup(group *Group) *awsiam.Group {
	return &awsiam.Group{
		GroupName:  aws.String(group.GroupName),
		GroupId:    aws.String(group.GroupID),
		Arn:        aws.String(group.ARN),
		Path:       aws.String(group.Path),
		CreateDate: aws.Time(parseCreated("group", group.GroupName, group.CreatedAt)),
	}
}

func sdkRole(role *Role) *awsiam.Role {
	return &awsiam.Role{
		RoleName:                 aws.String(role.RoleName),
		RoleId:                   aws.String(role.RoleID),
		Arn:                      aws.String(role.ARN),
		Path:                     aws.String(role.Path),
		Description:              aws.String(role.Description),
		AssumeRolePolicyDocument: aws.String(role.TrustPolicy),
		CreateDate:               aws.Time(parseCreated("role", role.RoleName, role.CreatedAt)),
	}
}

// sdkPolicy must be called with at least the read lock held, for the
// attachment count.
func (s *Store) sdkPolicy(policy *Policy) *awsiam.Policy {
	return &awsiam.Policy{
		PolicyName:       aws.String(policy.PolicyName),
		PolicyId:         aws.String(policy.PolicyID),
		Arn:              aws.String(policy.ARN),
		Path:             aws.String(policy.Path),
		Description:      aws.String(policy.Description),
		DefaultVersionId: aws.String(policy.DefaultVersion),
		CreateDate:       aws.Time(parseCreated("policy", policy.PolicyName, policy.CreatedAt)),
		AttachmentCount:  aws.Int64(s.countPolicyAttachments(policy.AccountID, policy.ARN)),
		IsAttachable:     aws.Bool(true),
	}
}

func requireAttachInput(entityName, policyARN *string, field string) error {
	if entityName == nil || *entityName == "" {
		return awserrors.NewErrorf(awserrors.ErrorIAMInvalidInput, "%s is required", field)
	}
	if policyARN == nil || *policyARN == "" {
		return awserrors.NewError(awserrors.ErrorIAMInvalidInput, "PolicyArn is required")
	}
	return nil
}

func removeString(list []string, value string) []string {
	remaining := make([]string, 0, len(list))
	for _, item := range list {
		if item != value {
			remaining = append(remaining, item)
		}
	}
	return remaining
}

func sortedKeys[V any](m map[string]*V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
