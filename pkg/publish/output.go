package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/process"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// OutputManager owns the optional side outputs of a publish run: the
// source-to-output TSV mapping, the build metadata YAML and the structure listing.
type OutputManager struct {
	log        *logrus.Entry
	appCfg     *config.AppConfig
	sourceDir  string
	publishDir string

	// TSV mapping
	mappingFile     *os.File
	mappingFilePath string

	// YAML metadata
	buildID        string
	buildStartTime time.Time
	pages          []models.PageMetadata
	assetCount     int
	cacheHits      int
}

// NewOutputManager creates an OutputManager without opening files.
// Call OpenFiles after the publish directory has been recreated.
func NewOutputManager(log *logrus.Entry, appCfg *config.AppConfig, sourceDir, publishDir string) *OutputManager {
	return &OutputManager{
		log:            log,
		appCfg:         appCfg,
		sourceDir:      sourceDir,
		publishDir:     publishDir,
		buildID:        uuid.NewString(),
		buildStartTime: time.Now(),
		pages:          make([]models.PageMetadata, 0),
	}
}

// BuildID returns the identifier of this run
func (om *OutputManager) BuildID() string {
	return om.buildID
}

// OpenFiles opens the TSV mapping file when enabled.
func (om *OutputManager) OpenFiles() error {
	if !om.appCfg.EnableOutputMapping {
		om.log.Debug("Source-to-output mapping is disabled.")
		return nil
	}
	om.mappingFilePath = filepath.Join(om.publishDir, config.GetEffectiveOutputMappingFilename(*om.appCfg))
	om.log.Infof("Source-to-output mapping enabled. Output file: %s", om.mappingFilePath)

	file, err := os.OpenFile(om.mappingFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: opening mapping file '%s': %w", utils.ErrFilesystem, om.mappingFilePath, err)
	}
	om.mappingFile = file
	return nil
}

// RecordPage writes the mapping line and collects metadata for a published page.
func (om *OutputManager) RecordPage(page *process.PageResult, taskLog *logrus.Entry) error {
	if page.FromCache {
		om.cacheHits++
	}
	if err := om.writeToMappingFile(page.SourcePath, page.OutputPath, taskLog); err != nil {
		return err
	}

	if !om.appCfg.EnableMetadataYAML {
		return nil
	}
	relativeOutput, relErr := filepath.Rel(om.publishDir, page.OutputPath)
	if relErr != nil {
		taskLog.Warnf("Could not make path relative for metadata (Base: '%s', Target: '%s'): %v",
			om.publishDir, page.OutputPath, relErr)
		relativeOutput = page.OutputPath
	}
	meta := models.PageMetadata{
		SourcePath:   page.SourcePath,
		OutputPath:   filepath.ToSlash(relativeOutput),
		HeadingCount: len(page.Headings),
		ContentHash:  page.ContentHash,
		FromCache:    page.FromCache,
		ProcessedAt:  time.Now(),
	}
	om.pages = append(om.pages, meta)
	return nil
}

// RecordAsset writes the mapping line for a copied asset.
func (om *OutputManager) RecordAsset(srcPath, outputPath string, taskLog *logrus.Entry) error {
	om.assetCount++
	return om.writeToMappingFile(srcPath, outputPath, taskLog)
}

// AttachNodes fills in link and title of collected page metadata from the
// finished tree, keyed by source path.
func (om *OutputManager) AttachNodes(nodes map[string]*models.NavigationNode) {
	for i := range om.pages {
		if n, ok := nodes[om.pages[i].SourcePath]; ok {
			om.pages[i].Link = n.Link
			om.pages[i].Title = n.Title
		}
	}
}

// CacheHits returns the number of pages served from the render cache
func (om *OutputManager) CacheHits() int {
	return om.cacheHits
}

// Close closes the mapping file and writes the metadata and structure files.
func (om *OutputManager) Close() error {
	om.closeMappingFile()
	if err := om.writeMetadataYAML(); err != nil {
		return err
	}
	return om.writeStructureFile()
}

// closeMappingFile closes the TSV mapping file, if it was opened.
func (om *OutputManager) closeMappingFile() {
	if om.mappingFile == nil {
		return
	}
	om.log.Debugf("Syncing and closing TSV mapping file: %s", om.mappingFilePath)
	if err := om.mappingFile.Sync(); err != nil {
		om.log.Errorf("Error syncing TSV mapping file '%s': %v", om.mappingFilePath, err)
	}
	if err := om.mappingFile.Close(); err != nil {
		om.log.Errorf("Error closing TSV mapping file '%s': %v", om.mappingFilePath, err)
	}
	om.mappingFile = nil
}

// writeToMappingFile writes one "source<TAB>output" line (if enabled and open).
func (om *OutputManager) writeToMappingFile(srcPath, outputPath string, taskLog *logrus.Entry) error {
	if om.mappingFile == nil {
		return nil
	}
	line := fmt.Sprintf("%s\t%s\n", srcPath, outputPath)
	if _, err := om.mappingFile.WriteString(line); err != nil {
		taskLog.WithFields(logrus.Fields{
			"tsv_mapping_file": om.mappingFilePath,
			"line_content":     strings.TrimSpace(line),
		}).Errorf("Failed to write to TSV mapping file: %v", err)
		return fmt.Errorf("%w: writing mapping file '%s': %w", utils.ErrFilesystem, om.mappingFilePath, err)
	}
	return nil
}

// writeMetadataYAML writes all collected page metadata to a YAML file.
func (om *OutputManager) writeMetadataYAML() error {
	if !om.appCfg.EnableMetadataYAML {
		om.log.Debug("YAML metadata output is disabled.")
		return nil
	}

	yamlFilePath := filepath.Join(om.publishDir, config.GetEffectiveMetadataYAMLFilename(*om.appCfg))
	om.log.Debugf("Preparing to write build metadata to: %s", yamlFilePath)

	var configMap map[string]interface{}
	configBytes, errCfgMarshal := yaml.Marshal(om.appCfg)
	if errCfgMarshal != nil {
		om.log.Warnf("Could not marshal configuration for YAML metadata: %v", errCfgMarshal)
	} else if errCfgUnmarshal := yaml.Unmarshal(configBytes, &configMap); errCfgUnmarshal != nil {
		om.log.Warnf("Could not unmarshal configuration into map for YAML metadata: %v", errCfgUnmarshal)
		configMap = nil
	}

	metadata := models.BuildMetadata{
		BuildID:        om.buildID,
		SourceDir:      om.sourceDir,
		PublishDir:     om.publishDir,
		BuildStartTime: om.buildStartTime,
		BuildEndTime:   time.Now(),
		TotalPages:     len(om.pages),
		TotalAssets:    om.assetCount,
		CacheHits:      om.cacheHits,
		Configuration:  configMap,
		Pages:          om.pages,
	}

	yamlData, errMarshal := yaml.Marshal(&metadata)
	if errMarshal != nil {
		return fmt.Errorf("failed to marshal build metadata to YAML: %w", errMarshal)
	}
	if errWrite := os.WriteFile(yamlFilePath, yamlData, 0644); errWrite != nil {
		return fmt.Errorf("%w: writing metadata YAML file '%s': %w", utils.ErrFilesystem, yamlFilePath, errWrite)
	}

	om.log.Infof("Wrote build metadata (%d pages) to %s", metadata.TotalPages, yamlFilePath)
	return nil
}

// writeStructureFile writes a text tree of the publish directory.
func (om *OutputManager) writeStructureFile() error {
	if !om.appCfg.WriteStructureFile {
		return nil
	}
	structurePath := filepath.Join(om.publishDir, config.GetEffectiveStructureFilename(*om.appCfg))
	if err := utils.GenerateAndSaveTreeStructure(om.publishDir, structurePath, om.log); err != nil {
		return err
	}
	om.log.Infof("Wrote publish tree structure to %s", structurePath)
	return nil
}
