package service

import "context"

type testTxRepos struct {
	profiles ProfileRepositoryInterface
	chunks   ProfileChunkRepositoryInterface
}

func (t *testTxRepos) Profiles() ProfileRepositoryInterface {
	return t.profiles
}

func (t *testTxRepos) Chunks() ProfileChunkRepositoryInterface {
	return t.chunks
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
