package llm

import (
	"context"
	"encoding/json"
	"sync"

	"stackforge/internal/llmclient"
)

// FakeClient is an offline oracle used for local development and tests.
// It returns a minimal but well-formed file map for each component so the
// pipeline can run end to end without network access.
type FakeClient struct {
	mu    sync.Mutex
	calls int
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }
func (f *FakeClient) CountTokens(text string) int {
	return llmclient.CountTokens(text)
}
func (f *FakeClient) TokenCapacity() int { return 12000 }

// Calls reports how many GenerateJSON invocations were served.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var files map[string]string
	switch ComponentFrom(ctx) {
	case "frontend":
		files = fakeFrontendFiles
	case "database":
		files = fakeDatabaseFiles
	default:
		files = fakeBackendFiles
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

var fakeBackendFiles = map[string]string{
	"src/app.js": `const express = require('express');
const helmet = require('helmet');
const cors = require('cors');
const app = express();
app.use(helmet());
app.use(cors());
app.use(express.json());
app.use((err, req, res, next) => {
  console.error(err);
  res.status(500).json({ error: 'internal error' });
});
module.exports = app;
`,
	"src/routes/items.js": `const router = require('express').Router();
const controller = require('../controllers/itemController');
router.get('/api/items', controller.list);
router.post('/api/items', controller.create);
module.exports = router;
`,
	"src/controllers/itemController.js": `const Joi = require('joi');
const schema = Joi.object({ name: Joi.string().required() });
exports.list = async (req, res, next) => {
  try {
    res.status(200).json({ items: [] });
  } catch (err) {
    next(err);
  }
};
exports.create = async (req, res, next) => {
  try {
    const { error } = schema.validate(req.body);
    if (error) return res.status(400).json({ error: error.message });
    console.log('item created');
    res.status(201).json({ ok: true });
  } catch (err) {
    next(err);
  }
};
`,
}

var fakeFrontendFiles = map[string]string{
	"src/App.tsx": `import React from 'react';
import { ItemList } from './components/ItemList';

export default function App(): JSX.Element {
  return <ItemList />;
}
`,
	"src/components/ItemList.tsx": `import React, { useEffect, useState } from 'react';

interface Item { id: string; name: string; }

export function ItemList(): JSX.Element {
  const [items, setItems] = useState<Item[]>([]);
  const [loading, setLoading] = useState<boolean>(true);
  const [error, setError] = useState<string | null>(null);

  useEffect(() => {
    fetch('/api/items')
      .then((r) => r.json())
      .then((d) => setItems(d.items))
      .catch((e) => setError(String(e)))
      .finally(() => setLoading(false));
  }, []);

  if (loading) return <div aria-busy="true">Loading...</div>;
  if (error) return <div role="alert">{error}</div>;
  return (
    <ul aria-label="items">
      {items.map((it) => (
        <li key={it.id}>{it.name}</li>
      ))}
    </ul>
  );
}
`,
}

var fakeDatabaseFiles = map[string]string{
	"migrations/001_init.sql": `CREATE TABLE items (
  id UUID PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX idx_items_name ON items (name);
`,
}
