package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
)

// MemoryNetwork is an in-process Network used for local runs and tests.
type MemoryNetwork struct {
	mu       sync.Mutex
	tenants  map[int64]*models.Tenant
	data     map[int64]*memoryTenant
	nextID   int64
	acquired int
}

func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		tenants: make(map[int64]*models.Tenant),
		data:    make(map[int64]*memoryTenant),
	}
}

func (n *MemoryNetwork) Close() error {
	return nil
}

// OpenHandles is the number of acquired and not yet released handles.
func (n *MemoryNetwork) OpenHandles() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.acquired
}

func (n *MemoryNetwork) ActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []models.Tenant
	for _, t := range n.tenants {
		if t.Active() {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (n *MemoryNetwork) CreateTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.byDomain(domain) != nil {
		return nil, ErrTenantExists
	}
	return n.insert(domain), nil
}

func (n *MemoryNetwork) EnsureTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t := n.byDomain(domain); t != nil {
		cp := *t
		return &cp, nil
	}
	return n.insert(domain), nil
}

func (n *MemoryNetwork) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := n.byDomain(domain)
	if t == nil {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (n *MemoryNetwork) UpdateTenantFlags(ctx context.Context, id int64, flags models.TenantFlags) (*models.Tenant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	flags.Apply(t)
	cp := *t
	return &cp, nil
}

func (n *MemoryNetwork) byDomain(domain string) *models.Tenant {
	for _, t := range n.tenants {
		if strings.EqualFold(t.Domain, domain) {
			return t
		}
	}
	return nil
}

func (n *MemoryNetwork) insert(domain string) *models.Tenant {
	n.nextID++
	t := &models.Tenant{ID: n.nextID, Domain: domain, CreatedAt: time.Now()}
	n.tenants[t.ID] = t
	cp := *t
	return &cp
}

func (n *MemoryNetwork) Acquire(ctx context.Context, tenantID int64) (TenantHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	d, ok := n.data[tenantID]
	if !ok {
		d = newMemoryTenant()
		n.data[tenantID] = d
	}
	n.acquired++
	return &MemoryStore{network: n, tenantID: tenantID, data: d}, nil
}

type memoryTenant struct {
	mu          sync.Mutex
	provisioned bool
	entityTypes map[string]models.EntityType
	taxonomies  map[string]models.Taxonomy
	relations   map[string]models.RelationType
	options     map[string]string
	tasks       map[int64]*models.Task
	revisions   map[int64][]models.Revision
	terms       map[int64]*models.Term
	assigned    map[int64]map[int64]bool
	nextTask    int64
	nextTerm    int64
	nextRev     int64
}

func newMemoryTenant() *memoryTenant {
	return &memoryTenant{
		entityTypes: make(map[string]models.EntityType),
		taxonomies:  make(map[string]models.Taxonomy),
		relations:   make(map[string]models.RelationType),
		options:     make(map[string]string),
		tasks:       make(map[int64]*models.Task),
		revisions:   make(map[int64][]models.Revision),
		terms:       make(map[int64]*models.Term),
		assigned:    make(map[int64]map[int64]bool),
	}
}

// MemoryStore is a handle onto one tenant of a MemoryNetwork.
type MemoryStore struct {
	network  *MemoryNetwork
	tenantID int64
	data     *memoryTenant
	released bool
}

func (s *MemoryStore) TenantID() int64 {
	return s.tenantID
}

func (s *MemoryStore) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	s.network.mu.Lock()
	s.network.acquired--
	s.network.mu.Unlock()
	return nil
}

// lock fails like a missing schema would until EnsureSchema ran.
func (s *MemoryStore) lock() (*memoryTenant, error) {
	d := s.data
	d.mu.Lock()
	if !d.provisioned {
		d.mu.Unlock()
		return nil, ErrNotProvisioned
	}
	return d, nil
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	s.data.mu.Lock()
	s.data.provisioned = true
	s.data.mu.Unlock()
	return nil
}

func (s *MemoryStore) RegisterEntityType(ctx context.Context, entity models.EntityType) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.entityTypes[entity.Name] = entity
	return nil
}

func (s *MemoryStore) RegisterTaxonomy(ctx context.Context, taxonomy models.Taxonomy) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.taxonomies[taxonomy.Name] = taxonomy
	return nil
}

func (s *MemoryStore) RegisterRelationType(ctx context.Context, rel models.RelationType) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.relations[rel.Name] = rel
	return nil
}

func (s *MemoryStore) HasRelationType(ctx context.Context, name string) (bool, error) {
	d, err := s.lock()
	if err != nil {
		return false, err
	}
	defer d.mu.Unlock()
	_, ok := d.relations[name]
	return ok, nil
}

// EntityTypeNames and TaxonomyNames expose the registration state.
func (s *MemoryStore) EntityTypeNames() []string {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return sortedKeys(s.data.entityTypes)
}

func (s *MemoryStore) TaxonomyNames() []string {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return sortedKeys(s.data.taxonomies)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	d, err := s.lock()
	if err != nil {
		return "", false, err
	}
	defer d.mu.Unlock()
	v, ok := d.options[name]
	return v, ok, nil
}

func (s *MemoryStore) AddOption(ctx context.Context, name, value string) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()
	if _, ok := d.options[name]; !ok {
		d.options[name] = value
	}
	return nil
}

func (s *MemoryStore) SetOption(ctx context.Context, name, value string) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.options[name] = value
	return nil
}

func copyTask(t *models.Task) models.Task {
	cp := *t
	if t.Meta != nil {
		cp.Meta = make(map[string]string, len(t.Meta))
		for k, v := range t.Meta {
			cp.Meta[k] = v
		}
	}
	return cp
}

func (s *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()

	d.nextTask++
	task.ID = d.nextTask
	task.CreatedAt = time.Now()
	task.ModifiedAt = task.CreatedAt
	stored := copyTask(task)
	d.tasks[task.ID] = &stored
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	t, ok := d.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyTask(t)
	return &cp, nil
}

func (s *MemoryStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	tasks := make([]models.Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		tasks = append(tasks, copyTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].MenuOrder != tasks[j].MenuOrder {
			return tasks[i].MenuOrder < tasks[j].MenuOrder
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task *models.Task) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()

	prev, ok := d.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	d.nextRev++
	d.revisions[task.ID] = append(d.revisions[task.ID], models.Revision{
		ID:        d.nextRev,
		TaskID:    task.ID,
		Title:     prev.Title,
		Content:   prev.Content,
		Excerpt:   prev.Excerpt,
		CreatedAt: time.Now(),
	})

	task.ModifiedAt = time.Now()
	task.CreatedAt = prev.CreatedAt
	task.AuthorID = prev.AuthorID
	task.ResponsibleID = prev.ResponsibleID
	stored := copyTask(task)
	d.tasks[task.ID] = &stored
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id int64) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()

	if _, ok := d.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(d.tasks, id)
	delete(d.revisions, id)
	delete(d.assigned, id)
	return nil
}

func (s *MemoryStore) Revisions(ctx context.Context, taskID int64) ([]models.Revision, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return append([]models.Revision(nil), d.revisions[taskID]...), nil
}

func (s *MemoryStore) SetResponsible(ctx context.Context, taskID int64, userID *int64) error {
	d, err := s.lock()
	if err != nil {
		return err
	}
	defer d.mu.Unlock()

	t, ok := d.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if userID == nil {
		t.ResponsibleID = nil
		return nil
	}
	id := *userID
	t.ResponsibleID = &id
	return nil
}

func (s *MemoryStore) Terms(ctx context.Context, taxonomy string) ([]models.Term, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	terms := []models.Term{}
	for _, t := range d.terms {
		if t.Taxonomy == taxonomy {
			terms = append(terms, *t)
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Slug < terms[j].Slug })
	return terms, nil
}

func (s *MemoryStore) TaskTerms(ctx context.Context, taskID int64, taxonomy string) ([]models.Term, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	terms := []models.Term{}
	for id := range d.assigned[taskID] {
		if t := d.terms[id]; t != nil && t.Taxonomy == taxonomy {
			terms = append(terms, *t)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Name != terms[j].Name {
			return terms[i].Name < terms[j].Name
		}
		return terms[i].ID < terms[j].ID
	})
	return terms, nil
}

func (s *MemoryStore) AssignTermsByName(ctx context.Context, taskID int64, taxonomy string, names []string) ([]models.Term, error) {
	d, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	if _, ok := d.tasks[taskID]; !ok {
		return nil, ErrNotFound
	}

	terms := make([]models.Term, 0, len(names))
	for _, name := range uniqueNames(names) {
		terms = append(terms, *d.ensureTerm(taxonomy, name))
	}

	current := d.assigned[taskID]
	next := make(map[int64]bool, len(current)+len(terms))
	for id := range current {
		if t := d.terms[id]; t != nil && t.Taxonomy != taxonomy {
			next[id] = true
		}
	}
	for _, t := range terms {
		next[t.ID] = true
	}
	d.assigned[taskID] = next
	return terms, nil
}

func (d *memoryTenant) ensureTerm(taxonomy, name string) *models.Term {
	slug := models.Slugify(name)
	for _, t := range d.terms {
		if t.Taxonomy == taxonomy && t.Slug == slug {
			return t
		}
	}
	d.nextTerm++
	t := &models.Term{ID: d.nextTerm, Taxonomy: taxonomy, Name: name, Slug: slug}
	d.terms[t.ID] = t
	return t
}

// TermCount counts the vocabulary of a taxonomy regardless of usage.
func (s *MemoryStore) TermCount(taxonomy string) int {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	n := 0
	for _, t := range s.data.terms {
		if t.Taxonomy == taxonomy {
			n++
		}
	}
	return n
}

// MemoryCache implements Cache with a TTL map.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   any
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
}

func (c *MemoryCache) del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) GetTerms(ctx context.Context, tenantID int64, taxonomy string) ([]models.Term, error) {
	v, ok := c.get(termsKey(tenantID, taxonomy))
	if !ok {
		return nil, nil
	}
	return append([]models.Term{}, v.([]models.Term)...), nil
}

func (c *MemoryCache) SetTerms(ctx context.Context, tenantID int64, taxonomy string, terms []models.Term, ttl time.Duration) error {
	c.set(termsKey(tenantID, taxonomy), append([]models.Term{}, terms...), ttl)
	return nil
}

func (c *MemoryCache) DeleteTerms(ctx context.Context, tenantID int64, taxonomy string) error {
	c.del(termsKey(tenantID, taxonomy))
	return nil
}

func (c *MemoryCache) GetTaskList(ctx context.Context, tenantID int64) ([]models.Task, error) {
	v, ok := c.get(taskListKey(tenantID))
	if !ok {
		return nil, nil
	}
	return append([]models.Task{}, v.([]models.Task)...), nil
}

func (c *MemoryCache) SetTaskList(ctx context.Context, tenantID int64, tasks []models.Task, ttl time.Duration) error {
	c.set(taskListKey(tenantID), append([]models.Task{}, tasks...), ttl)
	return nil
}

func (c *MemoryCache) DeleteTaskList(ctx context.Context, tenantID int64) error {
	c.del(taskListKey(tenantID))
	return nil
}

func (c *MemoryCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := claimKey(key)
	if e, ok := c.entries[k]; ok && (e.expires.IsZero() || !c.now().After(e.expires)) {
		return false, nil
	}
	e := memoryEntry{value: true}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[k] = e
	return true, nil
}

func (c *MemoryCache) Release(ctx context.Context, key string) error {
	c.del(claimKey(key))
	return nil
}
