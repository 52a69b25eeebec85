package types

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	tmtime "github.com/tendermint/tendermint/types/time"
)

// GenesisDoc - 所有节点共享的创世配置，genesis block由它唯一确定
type GenesisDoc struct {
	ChainID     string    `json:"chain_id"`
	GenesisTime time.Time `json:"genesis_time"`
}

func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}
	if genDoc.GenesisTime.IsZero() {
		genDoc.GenesisTime = tmtime.Now()
	}
	return nil
}

// Block 根据genesis doc生成genesis block
func (genDoc *GenesisDoc) Block() *Block {
	return MakeGenesisBlock(genDoc.ChainID, genDoc.GenesisTime)
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	bz, err := json.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(file, bz, 0644)
}

// GenesisDocFromFile reads JSON data from a file and unmarshalls it into a GenesisDoc.
func GenesisDocFromFile(genDocFile string) (*GenesisDoc, error) {
	bz, err := ioutil.ReadFile(genDocFile)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read GenesisDoc file")
	}
	genDoc := &GenesisDoc{}
	if err := json.Unmarshal(bz, genDoc); err != nil {
		return nil, errors.Wrapf(err, "error reading GenesisDoc at %s", genDocFile)
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return genDoc, nil
}
