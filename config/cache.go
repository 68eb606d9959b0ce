package config

import "sync"

// Tables loaded once per path and shared between workers
type Cache struct {
	mutex  sync.Mutex
	tables map[string]*Table
}

func NewCache() *Cache {
	return &Cache{tables: make(map[string]*Table)}
}

// Get returns the table at path, loading it on first use.
// Failed loads are not cached.
func (c *Cache) Get(path string) (*Table, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if table, ok := c.tables[path]; ok {
		return table, nil
	}

	table, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.tables[path] = table
	return table, nil
}
